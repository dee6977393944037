package notionsync

import (
	"context"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
)

func rollupRows() []*infra.TransactionRow {
	shopping := sampleRow("tx-1", "AMAZON", "debit")
	shopping.Category = bigquery.NullString{StringVal: "Shopping", Valid: true}
	shopping.Amount = infra.RatFromFloat(100)

	food := sampleRow("tx-2", "STARBUCKS", "debit")
	food.Category = bigquery.NullString{StringVal: "Food & Dining", Valid: true}
	food.Amount = infra.RatFromFloat(20.50)

	payment := sampleRow("tx-3", "PAYMENT RECEIVED", "credit")
	payment.Amount = infra.RatFromFloat(500)

	return []*infra.TransactionRow{shopping, food, payment}
}

func pageWithPeriod(pageID, title string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Period": &notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}},
				},
			},
		},
	}
}

func TestSyncRollupCreatesPage(t *testing.T) {
	store := &mockQuerier{rows: rollupRows()}
	notion := &mockNotion{}

	result, err := SyncRollup(context.Background(), store, notion, "rollup-db", "2024-04-01", "2024-04-30", false)
	if err != nil {
		t.Fatalf("SyncRollup: %v", err)
	}

	if !result.Created || result.Updated {
		t.Errorf("result = %+v, want created", result)
	}
	if result.Title != "Spending 2024-04-01 to 2024-04-30" {
		t.Errorf("Title = %q", result.Title)
	}
	if len(notion.created) != 1 {
		t.Fatalf("created %d pages, want 1", len(notion.created))
	}

	props := notion.created[0]
	total, ok := props["Total Spend"].(notionapi.NumberProperty)
	if !ok || total.Number != 120.50 {
		t.Errorf("Total Spend = %+v, want 120.50", props["Total Spend"])
	}
	count, ok := props["Transactions"].(notionapi.NumberProperty)
	if !ok || count.Number != 2 {
		t.Errorf("Transactions = %+v, want 2 (credits excluded)", props["Transactions"])
	}
}

func TestSyncRollupUpdatesExistingPage(t *testing.T) {
	store := &mockQuerier{rows: rollupRows()}
	notion := &mockNotion{pages: []notionapi.Page{
		pageWithPeriod("page-old", "Spending 2024-03-01 to 2024-03-31"),
		pageWithPeriod("page-apr", "Spending 2024-04-01 to 2024-04-30"),
	}}

	result, err := SyncRollup(context.Background(), store, notion, "rollup-db", "2024-04-01", "2024-04-30", false)
	if err != nil {
		t.Fatalf("SyncRollup: %v", err)
	}

	if !result.Updated || result.Created {
		t.Errorf("result = %+v, want updated", result)
	}
	if len(notion.created) != 0 {
		t.Errorf("created %d pages, want 0", len(notion.created))
	}
	if _, ok := notion.updated["page-apr"]; !ok {
		t.Errorf("updated pages = %v, want page-apr", notion.updated)
	}
}

func TestSyncRollupDryRun(t *testing.T) {
	store := &mockQuerier{rows: rollupRows()}
	notion := &mockNotion{pages: []notionapi.Page{
		pageWithPeriod("page-apr", "Spending 2024-04-01 to 2024-04-30"),
	}}

	result, err := SyncRollup(context.Background(), store, notion, "rollup-db", "2024-04-01", "2024-04-30", true)
	if err != nil {
		t.Fatalf("SyncRollup: %v", err)
	}

	if !result.Updated {
		t.Errorf("result = %+v, want would-update", result)
	}
	if len(notion.created) != 0 || len(notion.updated) != 0 {
		t.Error("dry run must not write to Notion")
	}
}

func TestRollupToNotionProperties(t *testing.T) {
	totals := CategoryTotals(rollupRows())
	props := RollupToNotionProperties("Spending 2024-04-01 to 2024-04-30", totals)

	title, ok := props["Period"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 || title.Title[0].Text.Content != "Spending 2024-04-01 to 2024-04-30" {
		t.Errorf("Period = %+v", props["Period"])
	}

	breakdown, ok := props["Breakdown"].(notionapi.RichTextProperty)
	if !ok || len(breakdown.RichText) == 0 {
		t.Fatalf("Breakdown = %+v", props["Breakdown"])
	}
	want := "Shopping: $100.00 (1)\nFood & Dining: $20.50 (1)"
	if got := breakdown.RichText[0].Text.Content; got != want {
		t.Errorf("Breakdown = %q, want %q", got, want)
	}
}

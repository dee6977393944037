package notionsync

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/infra/bigquery"
)

// TransactionToNotionProperties converts a transaction row into the
// Notion page shape. The Transaction ID title property is the sync key.
func TransactionToNotionProperties(tx *bigquery.TransactionRow) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.TransactionID,
					},
				},
			},
		},
		"Description": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Description,
					},
				},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: civilDateToNotion(tx.TransactionDate),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: ratToFloat(tx.Amount),
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.TransactionType,
			},
		},
	}

	if tx.Category.Valid && tx.Category.StringVal != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category.StringVal,
			},
		}
	}

	return props
}

func civilDateToNotion(d civil.Date) *notionapi.Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	nd := notionapi.Date(t)
	return &nd
}

func ratToFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}

// ExtractTransactionID pulls the sync key back out of a Notion page.
// Returns "" when the page has no usable Transaction ID property.
func ExtractTransactionID(page notionapi.Page) string {
	return pageTitle(page, "Transaction ID")
}

// pageTitle reads the text of a title property, or "" when the property
// is missing or empty.
func pageTitle(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}

	title, ok := prop.(*notionapi.TitleProperty)
	if !ok {
		if v, ok2 := prop.(notionapi.TitleProperty); ok2 {
			title = &v
		} else {
			return ""
		}
	}

	if len(title.Title) == 0 || title.Title[0].Text == nil {
		return ""
	}
	return title.Title[0].Text.Content
}

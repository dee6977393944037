// Package categorize assigns spending categories to parsed transactions
// with a Gemini model.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

// DefaultModelName is the Gemini model used for categorization.
const DefaultModelName = "gemini-2.0-flash"

// Categories is the fixed taxonomy. The model must answer with one of
// these names; anything else falls back to Other.
var Categories = []string{
	"Shopping",
	"Food & Dining",
	"Transportation",
	"Subscriptions",
	"Utilities",
	"Housing",
	"Entertainment",
	"Travel",
	"Healthcare",
	"Income",
	"Other",
}

// CategoryOther is the fallback bucket.
const CategoryOther = "Other"

const systemPrompt = `You are a transaction categorizer. Given a credit card transaction description, respond with ONLY the category name from this list:
- Shopping (retail: Amazon, Walmart, Target, etc.)
- Food & Dining (restaurants, food delivery, groceries)
- Transportation (Uber, Lyft, gas, parking)
- Subscriptions (Netflix, Spotify, cloud services, software)
- Utilities (phone, internet, electricity)
- Housing (rent, mortgage, home services)
- Entertainment (movies, games, events, hobbies)
- Travel (hotels, flights, travel bookings)
- Healthcare (medical, pharmacy, insurance)
- Income (refunds, cashback, payments received)
- Other (anything else)

Respond with ONLY the category name, nothing else.`

// Categorizer labels transaction descriptions.
type Categorizer interface {
	// Categorize returns one of Categories for the description.
	Categorize(ctx context.Context, description string) (string, error)
}

// GeminiCategorizer implements Categorizer on top of the GenAI client.
type GeminiCategorizer struct {
	client *genai.Client
	model  string
}

// NewGeminiCategorizer creates a categorizer. Credentials come from the
// environment the same way as the rest of the GenAI SDK.
func NewGeminiCategorizer(ctx context.Context) (*GeminiCategorizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCategorizer: create genai client: %w", err)
	}
	return &GeminiCategorizer{client: client, model: DefaultModelName}, nil
}

// Categorize implements Categorizer.
func (g *GeminiCategorizer) Categorize(ctx context.Context, description string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\nTransaction: " + description + "\nCategory:"},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Categorize: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("Categorize: empty response from model")
	}

	return NormalizeCategory(raw), nil
}

// NormalizeCategory maps a raw model answer onto the taxonomy. The match
// is case-insensitive and tolerates extra words around the category name;
// no match means Other.
func NormalizeCategory(raw string) string {
	answer := strings.ToLower(strings.TrimSpace(raw))
	for _, category := range Categories {
		if strings.Contains(answer, strings.ToLower(category)) {
			return category
		}
	}
	return CategoryOther
}

// ValidCategory reports whether name is exactly one of Categories.
func ValidCategory(name string) bool {
	for _, category := range Categories {
		if name == category {
			return true
		}
	}
	return false
}

// TransactionStore is the slice of persistence the batch runner needs.
type TransactionStore interface {
	ListUncategorized(ctx context.Context) ([]UncategorizedTransaction, error)
	UpdateCategory(ctx context.Context, transactionID, category string) error
}

// UncategorizedTransaction is the minimal view the runner works with.
type UncategorizedTransaction struct {
	TransactionID string
	Description   string
}

// Runner walks the uncategorized backlog and labels each transaction.
type Runner struct {
	store       TransactionStore
	categorizer Categorizer
}

// NewRunner wires a batch runner.
func NewRunner(store TransactionStore, categorizer Categorizer) *Runner {
	return &Runner{store: store, categorizer: categorizer}
}

// Run categorizes every pending transaction. A failure on one
// transaction is logged and skipped; the count of updated rows is
// returned.
func (r *Runner) Run(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	pending, err := r.store.ListUncategorized(ctx)
	if err != nil {
		return 0, fmt.Errorf("Run: listing uncategorized: %w", err)
	}

	updated := 0
	for _, tx := range pending {
		category, err := r.categorizer.Categorize(ctx, tx.Description)
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.TransactionID).
				Msg("categorization failed, skipping")
			continue
		}

		if err := r.store.UpdateCategory(ctx, tx.TransactionID, category); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.TransactionID).
				Msg("category update failed, skipping")
			continue
		}

		log.Debug().
			Str("transaction_id", tx.TransactionID).
			Str("category", category).
			Msg("transaction categorized")
		updated++
	}

	return updated, nil
}

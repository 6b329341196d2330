// Package pricelookup suggests market rates for invoice line items. It
// asks a language model for a typical price range given a service
// description and parses the reply into decimals, so the result can flow
// straight into an invoice draft.
package pricelookup

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"
)

const (
	// DefaultModel is used when the caller does not override it.
	DefaultModel = anthropic.ModelClaudeSonnet4_5
	maxTokens    = 512
)

// Suggestion is a parsed price estimate for one line item.
type Suggestion struct {
	Low      decimal.Decimal
	High     decimal.Decimal
	Currency string
	Notes    string
}

// messageCreator is the slice of the SDK the client needs.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Client wraps the model API for price suggestions.
type Client struct {
	messages messageCreator
	model    anthropic.Model
}

// NewClient builds a Client authenticated with apiKey.
func NewClient(apiKey string) *Client {
	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{messages: &sdk.Messages, model: DefaultModel}
}

// Suggest asks for a typical price range for the described service in the
// given currency and region.
func (c *Client) Suggest(ctx context.Context, description, currency, region string) (*Suggestion, error) {
	prompt := buildPrompt(description, currency, region)

	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("price lookup request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseSuggestion(text.String(), currency)
}

func buildPrompt(description, currency, region string) string {
	var b strings.Builder
	b.WriteString("You are a pricing assistant for a small business.\n")
	fmt.Fprintf(&b, "Service or item: %s\n", description)
	fmt.Fprintf(&b, "Currency: %s\n", currency)
	if region != "" {
		fmt.Fprintf(&b, "Region: %s\n", region)
	}
	b.WriteString("Reply with exactly two lines:\n")
	b.WriteString("RANGE: <low>-<high>\n")
	b.WriteString("NOTES: <one sentence of context>\n")
	b.WriteString("Use plain numbers without currency symbols or thousands separators.")
	return b.String()
}

var rangePattern = regexp.MustCompile(`RANGE:\s*([0-9]+(?:\.[0-9]+)?)\s*-\s*([0-9]+(?:\.[0-9]+)?)`)

// parseSuggestion extracts the RANGE and NOTES lines from a model reply.
// Anything the model adds around them is ignored.
func parseSuggestion(reply, currency string) (*Suggestion, error) {
	m := rangePattern.FindStringSubmatch(reply)
	if m == nil {
		return nil, fmt.Errorf("no price range in reply: %q", firstLine(reply))
	}

	low, err := decimal.NewFromString(m[1])
	if err != nil {
		return nil, fmt.Errorf("bad low bound %q: %w", m[1], err)
	}
	high, err := decimal.NewFromString(m[2])
	if err != nil {
		return nil, fmt.Errorf("bad high bound %q: %w", m[2], err)
	}
	if high.LessThan(low) {
		low, high = high, low
	}

	s := &Suggestion{Low: low, High: high, Currency: currency}
	for _, line := range strings.Split(reply, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "NOTES:"); ok {
			s.Notes = strings.TrimSpace(rest)
			break
		}
	}
	return s, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

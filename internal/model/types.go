package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single bookkeeping entry (income or expense).
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"` // income, expense
	ProjectID   string          `json:"projectId,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}

// Validate checks the transaction has valid field values.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Date == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	if t.Kind != "income" && t.Kind != "expense" {
		return fmt.Errorf("kind must be income or expense (got %q)", t.Kind)
	}
	return nil
}

// InvoiceLine is a single line item on an invoice or quotation.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Total returns quantity * unit price for this line.
func (l InvoiceLine) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Invoice is an invoice or quotation issued to a client.
type Invoice struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId,omitempty"`
	Number    string          `json:"number"`
	ClientID  string          `json:"clientId,omitempty"`
	Date      string          `json:"date"`
	DueDate   string          `json:"dueDate,omitempty"`
	Status    string          `json:"status"` // draft, sent, paid, quotation
	Lines     []InvoiceLine   `json:"lines,omitempty"`
	TaxRate   decimal.Decimal `json:"taxRate,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// Subtotal returns the sum of all line totals before tax.
func (i *Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range i.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Total returns the invoice total including tax, rounded to two places.
func (i *Invoice) Total() decimal.Decimal {
	sub := i.Subtotal()
	tax := sub.Mul(i.TaxRate).Div(decimal.NewFromInt(100))
	return sub.Add(tax).Round(2)
}

// Validate checks the invoice has valid field values.
func (i *Invoice) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.Number == "" {
		return fmt.Errorf("number is required")
	}
	switch i.Status {
	case "draft", "sent", "paid", "quotation":
	default:
		return fmt.Errorf("invalid status %q", i.Status)
	}
	return nil
}

// Client is a customer the business issues invoices to.
type Client struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the client has valid field values.
func (c *Client) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Project groups transactions and invoices for one engagement.
type Project struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId,omitempty"`
	Name      string          `json:"name"`
	ClientID  string          `json:"clientId,omitempty"`
	Status    string          `json:"status,omitempty"` // active, done, archived
	Budget    decimal.Decimal `json:"budget,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// Validate checks the project has valid field values.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// CalendarEvent is an appointment or deadline on the calendar. Reminder
// state is carried on the event itself: ReminderMinutes is the offset
// before Date+Time at which a notification becomes due, and Notified
// records that it already fired. The scheduler only ever flips Notified
// to true; a user edit that resaves the event without the flag is the
// only way it resets.
type CalendarEvent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Date            string    `json:"date"`           // YYYY-MM-DD
	Time            string    `json:"time,omitempty"` // HH:MM
	ReminderMinutes *int      `json:"reminderMinutes,omitempty"`
	Notified        bool      `json:"notified,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the event has valid field values.
func (e *CalendarEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.Date == "" {
		return fmt.Errorf("date is required")
	}
	if e.ReminderMinutes != nil && *e.ReminderMinutes < 0 {
		return fmt.Errorf("reminderMinutes must not be negative (got %d)", *e.ReminderMinutes)
	}
	return nil
}

// StartsAt returns the event's start instant in the given location, or an
// error if date/time are unset or malformed. Time defaults to midnight.
func (e *CalendarEvent) StartsAt(loc *time.Location) (time.Time, error) {
	return ParseEventDateTime(e.Date, e.Time, loc)
}

// Settings holds the per-user application settings document. It is stored
// as a single record with a fixed id in the settings collection.
type Settings struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId,omitempty"`
	BusinessName  string          `json:"businessName,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	TaxRate       decimal.Decimal `json:"taxRate,omitempty"`
	InvoicePrefix string          `json:"invoicePrefix,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt,omitempty"`
}

// SettingsDocID is the fixed id of the singleton settings record.
const SettingsDocID = "settings"

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add",
	GroupID: "data",
	Short:   "Add a record interactively",
	Long: `Add a record to a collection through an interactive form.

Records are written to the local store immediately and sync to the
remote when the session has a remote identity.`,
}

var addTransactionCmd = &cobra.Command{
	Use:     "transaction",
	Aliases: []string{"tx"},
	Short:   "Record an income or expense",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			kind        = "expense"
			description string
			amountStr   string
			date        = time.Now().Format("2006-01-02")
			category    string
		)

		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Expense", "expense"),
					huh.NewOption("Income", "income"),
				).
				Value(&kind),
			huh.NewInput().
				Title("Description").
				Value(&description).
				Validate(requireValue("description")),
			huh.NewInput().
				Title("Amount").
				Value(&amountStr).
				Validate(validAmount),
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&date),
			huh.NewInput().
				Title("Category (optional)").
				Value(&category),
		))
		if err := form.Run(); err != nil {
			return err
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountStr, err)
		}

		tx := model.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Description: description,
			Category:    category,
			Amount:      amount,
			Kind:        kind,
		}
		if err := tx.Validate(); err != nil {
			return err
		}

		if err := saveRecord(cmd, model.CollectionTransactions, tx); err != nil {
			return err
		}
		fmt.Printf("%s Recorded %s %s\n", ui.Pass("✓"), kind, ui.Amount(amount.StringFixed(2), ""))
		return nil
	},
}

var addClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Add a client",
	RunE: func(cmd *cobra.Command, args []string) error {
		var c model.Client

		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Name").Value(&c.Name).Validate(requireValue("name")),
			huh.NewInput().Title("Email (optional)").Value(&c.Email),
			huh.NewInput().Title("Phone (optional)").Value(&c.Phone),
			huh.NewText().Title("Notes (optional)").Value(&c.Notes),
		))
		if err := form.Run(); err != nil {
			return err
		}

		c.ID = uuid.NewString()
		if err := c.Validate(); err != nil {
			return err
		}

		if err := saveRecord(cmd, model.CollectionClients, c); err != nil {
			return err
		}
		fmt.Printf("%s Added client %s\n", ui.Pass("✓"), ui.Accent(c.Name))
		return nil
	},
}

var addEventCmd = &cobra.Command{
	Use:   "event",
	Short: "Add a calendar event with an optional reminder",
	Long: `Add a calendar event.

The start time accepts natural language, for example "tomorrow at 10am"
or "next friday 14:30", as well as "2026-03-05 09:00".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			title    string
			whenStr  string
			reminder = "15"
		)

		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&title).
				Validate(requireValue("title")),
			huh.NewInput().
				Title("When").
				Placeholder("tomorrow at 10am").
				Value(&whenStr).
				Validate(validEventTime),
			huh.NewSelect[string]().
				Title("Reminder").
				Options(
					huh.NewOption("None", ""),
					huh.NewOption("15 minutes before", "15"),
					huh.NewOption("1 hour before", "60"),
					huh.NewOption("1 day before", "1440"),
				).
				Value(&reminder),
		))
		if err := form.Run(); err != nil {
			return err
		}

		starts, err := model.ParseNaturalTime(whenStr, time.Now())
		if err != nil {
			return err
		}

		ev := model.CalendarEvent{
			ID:    uuid.NewString(),
			Title: title,
			Date:  starts.Format("2006-01-02"),
			Time:  starts.Format("15:04"),
		}
		if reminder != "" {
			var mins int
			fmt.Sscanf(reminder, "%d", &mins)
			ev.ReminderMinutes = &mins
		}
		if err := ev.Validate(); err != nil {
			return err
		}

		if err := saveRecord(cmd, model.CollectionEvents, ev); err != nil {
			return err
		}
		fmt.Printf("%s Scheduled %s for %s\n", ui.Pass("✓"), ui.Accent(title),
			starts.Format("Mon Jan 2 15:04"))
		return nil
	},
}

// saveRecord opens a session, encodes v, and saves it through the
// synchronizer.
func saveRecord(cmd *cobra.Command, collection string, v any) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	record, err := model.Encode(v)
	if err != nil {
		return err
	}
	return sess.sync.Save(cmd.Context(), sess.id, collection, record)
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if d.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

func validEventTime(s string) error {
	if _, err := model.ParseNaturalTime(s, time.Now()); err != nil {
		return fmt.Errorf("could not understand that time")
	}
	return nil
}

func init() {
	addCmd.AddCommand(addTransactionCmd)
	addCmd.AddCommand(addClientCmd)
	addCmd.AddCommand(addEventCmd)
	rootCmd.AddCommand(addCmd)
}

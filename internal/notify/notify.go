// Package notify delivers user-visible notifications for reminders.
//
// The display/permission mechanics live outside this core; implementations
// here either log locally or hand the notification to an external delivery
// channel. Permission is checked, not managed: a notifier constructed
// without permission silently drops notifications.
package notify

import (
	"context"
	"log"
	"os"
)

// Notifier delivers one user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// LogNotifier writes notifications to a logger. It stands in for the
// platform notification API in headless and test environments.
type LogNotifier struct {
	logger    *log.Logger
	permitted bool
}

// NewLogNotifier creates a LogNotifier. permitted reflects the
// platform-level notification permission resolved at startup.
func NewLogNotifier(logger *log.Logger, permitted bool) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger, permitted: permitted}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, title, body string) error {
	if !n.permitted {
		return nil
	}
	n.logger.Printf("REMINDER: %s: %s", title, body)
	return nil
}

// FuncNotifier adapts a function to the Notifier interface.
type FuncNotifier func(ctx context.Context, title, body string) error

// Notify implements Notifier.
func (f FuncNotifier) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

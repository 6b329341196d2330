package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/notify"
	"github.com/fathom/ledgerdesk/internal/reminder"
	"github.com/fathom/ledgerdesk/internal/server"
	"github.com/fathom/ledgerdesk/internal/store/local"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "service",
	Short:   "Run the sync gateway and reminder scheduler",
	Long: `Run the long-lived LedgerDesk service.

The service resolves the session identity once at startup, subscribes to
all collections, and then:
  - serves collection snapshots to UI clients over WebSocket
  - accepts record writes over REST
  - fires calendar event reminders when they come due

Example usage:
  ledgerdesk serve                # Listen on the configured port
  ledgerdesk serve --port 9000    # Override the port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		cfg := sess.cfg
		logger := cfg.NewLogger("serve")

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		srv := server.New(sess.sync, sess.id, &server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         cfg.NewLogger("server"),
		})
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				logger.Printf("Gateway shutdown error: %v", err)
			}
		}()

		mux := syncer.NewMultiplexer(sess.sync, cfg.NewLogger("mux"))
		if err := mux.Open(sess.id, srv.OnSnapshot); err != nil {
			return fmt.Errorf("failed to open subscriptions: %w", err)
		}
		defer mux.Close()

		// File-backed stores pick up edits made by other processes.
		if sess.fileKV != nil {
			watcher, err := local.NewStoreWatcher(sess.local, sess.fileKV, cfg.NewLogger("watcher"))
			if err != nil {
				logger.Printf("Store watcher unavailable: %v", err)
			} else if err := watcher.Start(); err != nil {
				logger.Printf("Store watcher failed to start: %v", err)
			} else {
				defer func() { _ = watcher.Stop() }()
			}
		}

		if cfg.Reminders.Enabled {
			stopReminders, err := startReminders(sess)
			if err != nil {
				return err
			}
			defer stopReminders()
		}

		fmt.Printf("LedgerDesk service started on http://localhost:%d\n", cfg.Server.Port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", cfg.Server.Port)
		fmt.Printf("Session identity: %s\n", sess.id)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down...")
		return nil
	},
}

// startReminders wires the scheduler to the events collection. Reminder
// delivery goes to the message broker when one is configured, otherwise
// to the service log.
func startReminders(sess *session) (func(), error) {
	cfg := sess.cfg

	var notifier notify.Notifier
	var closeNotifier func()
	if cfg.AMQP.URL != "" {
		n, err := notify.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect message broker: %w", err)
		}
		notifier = n
		closeNotifier = n.Close
	} else {
		notifier = notify.NewLogNotifier(cfg.NewLogger("reminder"), true)
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}

	sched := reminder.New(sess.sync, sess.id, notifier, reminder.Config{
		PollInterval: cfg.Reminders.PollInterval,
		Location:     loc,
		Logger:       cfg.NewLogger("reminder"),
	})

	unsub, err := sess.sync.Subscribe(sess.id, model.CollectionEvents, sched.OnSnapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe reminder scheduler: %w", err)
	}

	sched.Start()
	return func() {
		sched.Stop()
		unsub()
		if closeNotifier != nil {
			closeNotifier()
		}
	}, nil
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

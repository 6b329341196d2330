// Package reminder polls the events collection and fires notifications
// for calendar events whose reminder instant has arrived.
//
// The scheduler runs only while the events subscription is live; whoever
// owns that subscription owns the scheduler's lifecycle. Firing uses a
// bounded window rather than an exact instant: the poll granularity is
// coarse and the process may have been stopped during part of the window,
// so an event fires if its reminder instant lies at most WindowDuration
// in the past. Reminders older than the window at first observation are
// never fired retroactively.
package reminder

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/notify"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

const (
	// DefaultPollInterval is how often the scheduler re-examines the
	// events snapshot.
	DefaultPollInterval = 60 * time.Second

	// WindowDuration bounds how late a reminder may still fire after its
	// instant has passed.
	WindowDuration = 30 * time.Minute
)

// Config holds scheduler configuration.
type Config struct {
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration

	// Location resolves event date/time strings. Defaults to time.Local.
	Location *time.Location

	// Clock overrides the system clock (tests).
	Clock Clock

	// Logger for scheduler activity.
	Logger *log.Logger
}

// Scheduler fires each due reminder exactly once and records the fired
// state back through the synchronizer.
type Scheduler struct {
	sync     *syncer.Synchronizer
	id       identity.Identity
	notifier notify.Notifier
	clock    Clock
	interval time.Duration
	loc      *time.Location
	logger   *log.Logger

	mu       sync.Mutex
	snapshot []model.Fields
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a Scheduler that persists through sync under id.
func New(sync *syncer.Synchronizer, id identity.Identity, notifier notify.Notifier, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[reminder] ", log.LstdFlags)
	}
	return &Scheduler{
		sync:     sync,
		id:       id,
		notifier: notifier,
		clock:    cfg.Clock,
		interval: cfg.PollInterval,
		loc:      cfg.Location,
		logger:   cfg.Logger,
	}
}

// OnSnapshot replaces the events snapshot the scheduler polls against.
// Wire it as the events subscription callback.
func (s *Scheduler) OnSnapshot(records []model.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = records
}

// Start runs one poll immediately, then polls on the configured interval
// until Stop is called.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.Poll()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.Poll()
			}
		}
	}()

	s.logger.Printf("Started with poll interval %v", s.interval)
}

// Stop halts polling and waits for the poll goroutine to exit. Safe to
// call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Printf("Stopped")
}

// Poll examines the current snapshot once and fires whatever is due.
// Exported so tests and manual triggers can drive it directly.
func (s *Scheduler) Poll() {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()

	candidates := s.collect(snapshot)
	if len(candidates) == 0 {
		return
	}

	now := s.clock.Now()
	for _, ev := range candidates {
		startsAt, err := ev.StartsAt(s.loc)
		if err != nil {
			s.logger.Printf("Skipping event %s with bad date/time: %v", ev.ID, err)
			continue
		}
		reminderInstant := startsAt.Add(-time.Duration(*ev.ReminderMinutes) * time.Minute)
		elapsed := now.Sub(reminderInstant)
		if elapsed < 0 || elapsed >= WindowDuration {
			continue
		}
		// One event's failure must not block the rest of the cycle.
		s.fire(ev)
	}
}

// collect filters the snapshot down to events that could ever fire:
// reminder configured, not yet notified, date present.
func (s *Scheduler) collect(snapshot []model.Fields) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, f := range snapshot {
		var ev model.CalendarEvent
		if err := model.Decode(f, &ev); err != nil {
			s.logger.Printf("Skipping undecodable event %s: %v", f.ID(), err)
			continue
		}
		if ev.ReminderMinutes == nil || ev.Notified || ev.Date == "" || ev.Time == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// fire emits the notification and persists the notified flag. The flag
// write is a partial record; merge-on-write keeps every other field.
func (s *Scheduler) fire(ev model.CalendarEvent) {
	body := ev.Description
	if body == "" {
		body = fmt.Sprintf("Event at %s %s", ev.Date, ev.Time)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.notifier.Notify(ctx, ev.Title, body); err != nil {
		s.logger.Printf("Failed to deliver reminder for %s: %v", ev.ID, err)
		// Fall through: the event is still marked notified.
	}

	if err := s.sync.Save(ctx, s.id, model.CollectionEvents,
		model.Fields{"id": ev.ID, "notified": true}); err != nil {
		s.logger.Printf("Failed to persist notified flag for %s: %v", ev.ID, err)
	}
}

package maildigest

import (
	"context"
	"log/slog"
	"time"

	"github.com/axora/taskdeck/internal/clock"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/notify"
)

// Source is the mailbox the checker reads from. Satisfied by
// Fetcher; tests substitute their own.
type Source interface {
	Fetch(ctx context.Context, since time.Time) ([]Message, error)
}

// Checker periodically polls the mailbox and folds notification
// emails into the notification store. It only runs its checks while
// the push connection is down; a healthy websocket already delivers
// everything the mail would.
type Checker struct {
	source   Source
	store    *notify.Store
	manager  *notify.Manager
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	// OnNotification, when set, is called for each new entry so the
	// UI can be woken up from outside the Bubble Tea loop.
	OnNotification func(model.Notification)

	lastCheck time.Time
}

// CheckerConfig bundles the Checker dependencies.
type CheckerConfig struct {
	Source   Source
	Store    *notify.Store
	Manager  *notify.Manager
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// NewChecker creates a mailbox checker.
func NewChecker(cfg CheckerConfig) *Checker {
	c := &Checker{
		source:   cfg.Source,
		store:    cfg.Store,
		manager:  cfg.Manager,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
	if c.interval <= 0 {
		c.interval = 5 * time.Minute
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.lastCheck = c.clock.Now()
	return c
}

// Run polls the mailbox until the context is cancelled. It blocks and
// is meant to run in its own goroutine.
func (c *Checker) Run(ctx context.Context) {
	ticks, stop := c.clock.NewTicker(c.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			c.check(ctx)
		}
	}
}

// check runs a single poll cycle. Skipped while the websocket is
// connected.
func (c *Checker) check(ctx context.Context) {
	if c.manager != nil && c.manager.State() == notify.StateConnected {
		return
	}

	since := c.lastCheck
	messages, err := c.source.Fetch(ctx, since)
	if err != nil {
		c.logger.Warn("mail digest fetch", "error", err)
		return
	}
	c.lastCheck = c.clock.Now()

	for _, msg := range messages {
		n, ok := ParseNotification(msg)
		if !ok {
			continue
		}
		c.store.Add(n)
		if c.OnNotification != nil {
			c.OnNotification(n)
		}
	}
}

// taskdeck is a terminal client for the Axora task server. It keeps a
// live notification stream open over a websocket, mirrors your
// assigned tasks into a local cache for offline reading, and can fall
// back to polling a mailbox for notification emails when the push
// connection is down.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/app"
	"github.com/axora/taskdeck/internal/credential"
	"github.com/axora/taskdeck/internal/maildigest"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/notify"
	"github.com/axora/taskdeck/internal/session"
	"github.com/axora/taskdeck/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var serverURL string
	var logPath string

	flagSet := pflag.NewFlagSet("taskdeck", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")
	flagSet.StringVar(&serverURL, "server", "", "task server base URL (overrides config)")
	flagSet.StringVar(&logPath, "log-output", "", "write JSON log records to this file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}

	logger, closeLog, err := newLogger(logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	client := api.NewClient(cfg.Server.BaseURL, "")

	// The cache is an optimization; run without it rather than
	// refusing to start.
	var cache store.Cache
	if c, err := store.NewSQLiteCache(model.DefaultDBPath()); err != nil {
		logger.Warn("opening cache", "error", err)
	} else {
		cache = c
		defer c.Close()
	}

	notifyStore := notify.NewStore()
	manager := notify.NewManager(notify.ManagerConfig{
		WebSocketURL:   cfg.WebSocketURL(),
		Heartbeat:      time.Duration(cfg.Server.HeartbeatSec) * time.Second,
		ReconnectDelay: time.Duration(cfg.Server.ReconnectDelaySec) * time.Second,
		Logger:         logger,
	}, notifyStore)

	creds := credential.NewStore(cfg.Credentials.Service)
	sess, err := session.Load(creds)
	if err != nil {
		sess = session.Session{}
	}
	if sess.Token != "" {
		client.SetToken(sess.Token)
	}

	root := app.New(app.Options{
		Client:      client,
		Cache:       cache,
		Store:       notifyStore,
		Manager:     manager,
		Session:     sess,
		Credentials: creds,
		Logger:      logger,
	})

	program := tea.NewProgram(root, tea.WithAltScreen(), tea.WithReportFocus())

	digestCancel := startMailDigest(cfg, creds, notifyStore, manager, logger, program)
	defer digestCancel()

	_, err = program.Run()
	manager.Stop()
	return err
}

// startMailDigest launches the IMAP fallback checker when it is
// configured. Returns a cancel function; a no-op when disabled.
func startMailDigest(
	cfg *model.AppConfig,
	creds credential.Store,
	notifyStore *notify.Store,
	manager *notify.Manager,
	logger *slog.Logger,
	program *tea.Program,
) func() {
	md := cfg.MailDigest
	if !md.Enabled || md.Host == "" || md.Username == "" {
		return func() {}
	}

	password, err := creds.Get("imap-password")
	if err != nil || password == "" {
		logger.Warn("mail digest enabled but no imap-password in keyring")
		return func() {}
	}

	checker := maildigest.NewChecker(maildigest.CheckerConfig{
		Source:   maildigest.NewFetcher(md.Host, md.Username, password, md.Sender),
		Store:    notifyStore,
		Manager:  manager,
		Interval: time.Duration(md.PollIntervalSec) * time.Second,
		Logger:   logger,
	})
	checker.OnNotification = func(model.Notification) {
		// Wake the UI so the badge updates without a keypress.
		program.Send(app.ExternalNotificationMsg{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	go checker.Run(ctx)
	return cancel
}

// newLogger builds the application logger. Logging goes to a file
// (or nowhere): stderr belongs to the TUI.
func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, nil))
	return logger, func() { _ = f.Close() }, nil
}

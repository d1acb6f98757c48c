package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/config"
	"github.com/glabrego/conch/internal/logging"
	"github.com/glabrego/conch/internal/poll"
	"github.com/glabrego/conch/internal/remote"
	"github.com/glabrego/conch/internal/server"
	"github.com/glabrego/conch/internal/storage"
	"github.com/glabrego/conch/internal/tui"
)

const setupTimeout = 15 * time.Second

type ViewCmd struct {
	StickToTop bool   `short:"s" help:"Keep the selection on the newest blast as new ones arrive" env:"CONCH_STICK_TO_TOP"`
	Remote     string `help:"Watch a conch server instead of the local database" placeholder:"URL" env:"CONCH_REMOTE"`
}

func (c *ViewCmd) Run(cfg *config.Config) error {
	if err := config.ValidateRemoteURL(c.Remote); err != nil {
		return err
	}

	logger, closeLog, err := logging.Open(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer closeLog()

	source, closeSource, err := openSource(cfg, c.Remote, false, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	coord := poll.NewCoordinator(source, poll.Options{
		PageSize: cfg.PageSize,
		Logger:   logger,
	})
	model := tui.NewModel(coord, tui.Options{
		StickToTop:   c.StickToTop,
		PageSize:     cfg.PageSize,
		PollInterval: cfg.PollInterval,
		Prefetch:     cfg.Prefetch,
		KeyMap:       cfg.KeyMap,
		Logger:       logger,
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	if m, ok := final.(tui.Model); ok {
		m.Window().Release()
	}
	return nil
}

type PostCmd struct {
	Author  string   `short:"a" help:"Author name" default:"${user}" env:"CONCH_AUTHOR"`
	Remote  string   `help:"Post to a conch server instead of the local database" placeholder:"URL" env:"CONCH_REMOTE"`
	Content []string `arg:"" help:"Blast text"`
}

func (c *PostCmd) Run(cfg *config.Config) error {
	if err := config.ValidateRemoteURL(c.Remote); err != nil {
		return err
	}

	source, closeSource, err := openSource(cfg, c.Remote, true, logging.Discard())
	if err != nil {
		return err
	}
	defer closeSource()

	poster, ok := source.(blast.Poster)
	if !ok {
		return blast.ErrReadOnly
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	posted, err := poster.Post(ctx, c.Author, strings.Join(c.Content, " "))
	if err != nil {
		return fmt.Errorf("post blast: %w", err)
	}
	fmt.Printf("posted blast #%d\n", posted.ID)
	return nil
}

type ServeCmd struct {
	Addr string `help:"Listen address" default:":7337" env:"CONCH_ADDR"`
}

// Run serves the local database. The terminal is not taken over here, so
// logs go to stderr.
func (c *ServeCmd) Run(cfg *config.Config) error {
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	source, closeSource, err := openSource(cfg, "", true, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := server.NewHandler(source, cfg.PageSize, logger)
	return server.Serve(ctx, c.Addr, handler, logger)
}

// openSource returns the remote client when remoteURL is set, otherwise the
// local SQLite repository with its schema in place.
func openSource(cfg *config.Config, remoteURL string, write bool, logger *log.Logger) (blast.Source, func(), error) {
	if remoteURL != "" {
		logger.Info("using remote feed", "url", remoteURL)
		return remote.NewClient(remoteURL, nil), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}
	repo, err := storage.NewRepository(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init error: %w", err)
	}
	closeRepo := func() {
		if err := repo.Close(); err != nil {
			logger.Warn("close database", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("storage schema error: %w", err)
	}
	if write {
		if err := repo.CheckWritable(ctx); err != nil {
			closeRepo()
			return nil, nil, fmt.Errorf("storage write check failed (%w); verify %s is writable", err, cfg.DBPath)
		}
	}
	return repo, closeRepo, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/api"
	"github.com/Shayennn/ptm-noti/internal/config"
	"github.com/Shayennn/ptm-noti/internal/db"
	"github.com/Shayennn/ptm-noti/internal/notify"
	"github.com/Shayennn/ptm-noti/internal/repository"
	"github.com/Shayennn/ptm-noti/internal/service"
	"github.com/Shayennn/ptm-noti/internal/state"
	"github.com/Shayennn/ptm-noti/internal/storage"
	"github.com/Shayennn/ptm-noti/internal/token"
)

// app wires the components for one process: the token manager feeding
// the processor, both sharing the state store.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     *state.Store
	manager   *token.Manager
	processor *service.Processor
	archive   *repository.TicketRepository
}

func newApp(ctx context.Context, cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(cfg.StateFile, log)
	client := api.NewClient(cfg, log)
	manager := token.NewManager(client, store, cfg.NearExpiryThreshold, log)

	stor, err := storage.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	notifier := notify.New(cfg.Notify.URL, log)

	var archive *repository.TicketRepository
	if cfg.Database.DSN != "" {
		gormDB, err := db.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open ticket archive: %w", err)
		}
		archive = repository.NewTicketRepository(gormDB)
	}

	var archiveSink service.Archive
	if archive != nil {
		archiveSink = archive
	}

	processor := service.NewProcessor(client, store, stor, notifier, archiveSink, log)

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		manager:   manager,
		processor: processor,
		archive:   archive,
	}, nil
}

// runOnce performs a single poll cycle: valid token first, then the
// ticket list.
func (a *app) runOnce(ctx context.Context) error {
	accessToken, err := a.manager.Token(ctx)
	if err != nil {
		return err
	}
	return a.processor.Process(ctx, accessToken)
}

func newLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}

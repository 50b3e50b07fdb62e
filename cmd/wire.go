package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Vovarama1992/collection-bot/internal/chat"
	"github.com/Vovarama1992/collection-bot/internal/config"
	"github.com/Vovarama1992/collection-bot/internal/profile"
	"github.com/Vovarama1992/collection-bot/internal/reply"
)

// buildEngine wires the chat engine from config. The returned func releases
// whatever was opened.
func buildEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*chat.Engine, func(), error) {
	closeFn := func() {}

	var db *sql.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = db.Close() }
	}

	templates := reply.Default()
	if cfg.TemplatesPath != "" {
		var err error
		templates, err = reply.LoadFile(cfg.TemplatesPath)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
	}

	var src profile.Source
	switch cfg.ProfileSource {
	case config.SourcePostgres:
		src = profile.NewPostgresSource(db)
	default:
		src = profile.NewCSVSource(cfg.ProfileCSV)
	}

	var journal chat.Journal
	switch cfg.Journal {
	case config.JournalPostgres:
		journal = chat.NewPostgresJournal(db)
	case config.JournalBoth:
		journal = chat.MultiJournal{chat.NewFileJournal(cfg.LogDir), chat.NewPostgresJournal(db)}
	default:
		journal = chat.NewFileJournal(cfg.LogDir)
	}

	engineCfg := chat.Config{
		Profiles:     profile.NewLoader(src, log),
		Templates:    templates,
		Journal:      journal,
		StrictRender: cfg.StrictRender,
		Logger:       log,
	}
	if cfg.WebhookURL != "" {
		engineCfg.Notifier = chat.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken)
	}

	log.Debug("engine wired",
		zap.String("profile_source", cfg.ProfileSource),
		zap.String("journal", cfg.Journal),
		zap.Bool("strict_render", cfg.StrictRender),
		zap.Bool("operator_webhook", engineCfg.Notifier != nil),
	)
	return chat.NewEngine(engineCfg), closeFn, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

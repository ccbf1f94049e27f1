// Command prune-drafts deletes composer drafts that have not been touched
// within the configured max age.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/draft"
	"github.com/debemdeboas/feedback-board/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML or TOML config file")
	maxAge := flag.Duration("max-age", 0, "override drafts.max_age")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	db.SetLogger(l)
	draft.SetLogger(l)

	if *maxAge > 0 {
		cfg.Drafts.MaxAge = *maxAge
	}

	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDB(); err != nil {
		l.Fatal().Err(err).Msgf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n := draft.PruneOnce(ctx, draft.NewSQLiteStore(database, cfg.Drafts.MaxAge), cfg.Drafts.MaxAge)
	l.Info().Int64("pruned", n).Dur("max_age", cfg.Drafts.MaxAge).Str("database", cfg.Database.Path).Msg("Draft pruning finished")
}

// Command backfill-slugs assigns a unique url_slug to every post whose slug
// is missing or malformed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/database"
	"github.com/drawing-gallery/core/internal/modules/content/category"
	"github.com/drawing-gallery/core/internal/modules/content/post"
	"github.com/drawing-gallery/core/internal/modules/system/util/slugtracker"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	dryRun := flag.Bool("dry-run", false, "Print the planned changes without writing")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := run(*configPath, *dryRun, logger); err != nil {
		logger.Fatal("backfill failed", zap.Error(err))
	}
}

func run(configPath string, dryRun bool, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database, cfg.Env, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := post.NewService(db, category.NewService(db, cfg.Content.CategoryDeletePolicy))
	svc.SetSlugTracker(slugtracker.NewService(db))

	changes, err := svc.BackfillSlugs(ctx, dryRun)
	for _, ch := range changes {
		fmt.Printf("%s\t%q\t%q -> %q\n", ch.ID, ch.Title, ch.From, ch.To)
	}
	if err != nil {
		return err
	}

	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	logger.Info("backfill finished", zap.Int("posts", len(changes)), zap.String("mode", verb))
	return nil
}

// cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/unclebandit/dcrm-backend/internal/config"
	"github.com/unclebandit/dcrm-backend/internal/db"
	"github.com/unclebandit/dcrm-backend/internal/logger"
)

func main() {
	var (
		dir        string
		schemaOnly bool
	)
	pflag.StringVar(&dir, "dir", "seed", "directory holding the seed *.sql files")
	pflag.BoolVar(&schemaOnly, "schema-only", false, "apply migrations without loading seed data")
	pflag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dcrm-seeder")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, log); err != nil {
		log.Fatal("failed to apply migrations", zap.Error(err))
	}
	if schemaOnly {
		return
	}

	seedFiles, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatal("invalid seed directory", zap.String("dir", dir), zap.Error(err))
	}
	if len(seedFiles) == 0 {
		fmt.Fprintf(os.Stderr, "no seed files found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(seedFiles)

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("failed to read seed file", zap.String("file", file), zap.Error(err))
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.Fatal("failed to execute seed file", zap.String("file", file), zap.Error(err))
		}
		log.Info("seeded", zap.String("file", file))
	}

	log.Info("database seeding completed")
}

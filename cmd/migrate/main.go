// migrate applies the SQL files under migrations/ in lexical order.
//
// Usage: go run ./cmd/migrate [migrations-dir]
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/config"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("failed to read migrations directory")
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatal().Str("dir", dir).Msg("no .sql files found")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Fatal().Err(err).Str("file", name).Msg("failed to read migration")
		}

		log.Info().Str("file", name).Msg("applying migration")
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			log.Fatal().Err(err).Str("file", name).Msg("migration failed")
		}
	}

	log.Info().Int("count", len(files)).Msg("migrations applied")
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"UnjobCore/internal/config"
	"UnjobCore/internal/db"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dir := flag.String("dir", "migrations", "directory holding .sql migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := ensureSchemaTable(ctx, pool); err != nil {
		log.Fatalf("ensure schema table failed: %v", err)
	}

	names, err := listSQLFiles(*dir)
	if err != nil {
		log.Fatalf("list migrations failed: %v", err)
	}

	// Migrations are tracked by base filename so the same set applies once
	// regardless of where the directory lives.
	for _, name := range names {
		applied, err := isApplied(ctx, pool, name)
		if err != nil {
			log.Fatalf("check migration failed (%s): %v", name, err)
		}
		if applied {
			continue
		}

		if err := applyMigration(ctx, pool, filepath.Join(*dir, name)); err != nil {
			log.Fatalf("apply migration failed (%s): %v", name, err)
		}
		if err := markApplied(ctx, pool, name); err != nil {
			log.Fatalf("mark migration failed (%s): %v", name, err)
		}
		log.Printf("applied %s", name)
	}
}

func ensureSchemaTable(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
	return err
}

func listSQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isApplied(ctx context.Context, pool *db.Pool, name string) (bool, error) {
	var exists bool
	row := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename=$1)`, name)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func applyMigration(ctx context.Context, pool *db.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	_, err = pool.Exec(ctx, string(data))
	return err
}

func markApplied(ctx context.Context, pool *db.Pool, name string) error {
	_, err := pool.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
	return err
}

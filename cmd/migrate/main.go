package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldmark/fieldmark/internal/pkg/config"
)

func main() {
	dir := flag.String("dir", "migrations", "directory containing numbered .sql files")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("usage: migrate [-dir migrations] <up|down>")
	}

	cfg, err := config.Load("fieldmark-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch flag.Arg(0) {
	case "up":
		up(ctx, pool, *dir)
	case "down":
		down(ctx, pool)
	default:
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}
}

// up applies every .sql file in the directory in lexical order, which is why
// the files carry numeric prefixes.
func up(ctx context.Context, pool *pgxpool.Pool, dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalf("glob %s: %v", dir, err)
	}
	if len(files) == 0 {
		log.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

func down(ctx context.Context, pool *pgxpool.Pool) {
	// Dependency order: artifacts reference nothing, fields reference farms.
	stmts := []string{
		"DROP TABLE IF EXISTS capture_artifacts",
		"DROP TABLE IF EXISTS fields",
		"DROP TABLE IF EXISTS farms",
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			log.Fatalf("exec %q: %v", s, err)
		}
		fmt.Printf("OK  %s\n", s)
	}
	log.Println("schema dropped")
}

// Command migrate applies the SQL migrations under db/migrations against
// DATABASE_URL. With -new it scaffolds a timestamped up/down pair instead
// of touching the database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"couple-cards/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	newName := flag.String("new", "", "scaffold an up/down migration pair with this snake_case name")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if *newName != "" {
		up, down, err := scaffold(*dir, *newName, time.Now().UTC())
		if err != nil {
			log.Fatalf("scaffold migration: %v", err)
		}
		log.Printf("created %s and %s", up, down)
		return
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	m, err := migrate.New("file://"+*dir, mustDatabaseURL())
	if err != nil {
		log.Fatalf("migration setup failed: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")
}

func mustDatabaseURL() string {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	return dsn
}

// scaffold writes an empty up/down pair named <timestamp>_<name>. Existing
// files are never overwritten.
func scaffold(dir, name string, at time.Time) (string, string, error) {
	if name == "" {
		return "", "", fmt.Errorf("migration name is required")
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "", "", fmt.Errorf("migration name must be snake_case: %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	base := at.Format("20060102150405") + "_" + name
	up := filepath.Join(dir, base+".up.sql")
	down := filepath.Join(dir, base+".down.sql")
	title := strings.ReplaceAll(name, "_", " ")
	if err := writeNew(up, "-- "+title+"\n"); err != nil {
		return "", "", err
	}
	if err := writeNew(down, "-- revert "+title+"\n"); err != nil {
		return "", "", err
	}
	return up, down, nil
}

func writeNew(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

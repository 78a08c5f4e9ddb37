package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Apply runs every *.up.sql file in name order. Statements are idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return fmt.Errorf("migrations.Apply: read dir: %w", err)
	}

	var up []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			up = append(up, e.Name())
		}
	}
	sort.Strings(up)

	for _, name := range up {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return fmt.Errorf("migrations.Apply: read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("migrations.Apply: execute %s: %w", name, err)
		}
	}
	return nil
}

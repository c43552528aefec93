package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed queries/*.sql
var queries embed.FS

// ExecuteSQL runs a statement that returns no rows.
func ExecuteSQL(ctx context.Context, db *sql.DB, query string) error {
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db: exec: %w", err)
	}
	return nil
}

// LoadSQL reads a bundled query from queries/.
func LoadSQL(name string) (string, error) {
	query, err := queries.ReadFile("queries/" + name)
	if err != nil {
		return "", fmt.Errorf("db: reading SQL file %s: %w", name, err)
	}
	return string(query), nil
}

// generateNumberedPlaceholders builds "($1, $2), ($3, $4)" style VALUES lists.
func generateNumberedPlaceholders(rows int, fieldCount int) string {
	placeholders := make([]string, rows)
	counter := 1
	for i := 0; i < rows; i++ {
		inner := make([]string, fieldCount)
		for j := 0; j < fieldCount; j++ {
			inner[j] = "$" + strconv.Itoa(counter)
			counter++
		}
		placeholders[i] = "(" + strings.Join(inner, ", ") + ")"
	}
	return strings.Join(placeholders, ", ")
}

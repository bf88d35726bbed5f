package identity

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

// SetGooseUp replaces the migration runner until the returned func is called.
func SetGooseUp(fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) func() {
	orig := gooseUp
	gooseUp = fn
	return func() { gooseUp = orig }
}

// Package sqldriver implements storage.Driver over any ent SQL dialect. It
// is embedded by the sqlite and postgres drivers, which only differ in how
// the connection is opened.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
)

// Driver provides storage operations using ent's SQL builder.
type Driver struct {
	drv *entsql.Driver
}

// Open wraps db for dialectName and runs the schema auto-migration. This
// handles append-only schema changes (new tables, columns, indexes).
func Open(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	drv := entsql.OpenDB(dialectName, db)

	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{drv: drv}, nil
}

// Dialect returns the SQL dialect name of the connection.
func (d *Driver) Dialect() string {
	return d.drv.Dialect()
}

// Close closes the underlying database connection.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

// lockRow adds a row lock to s where the dialect supports it. SQLite
// serializes writers on its single connection instead.
func (d *Driver) lockRow(s *entsql.Selector) *entsql.Selector {
	if d.drv.Dialect() == dialect.Postgres {
		return s.ForUpdate()
	}
	return s
}

func (d *Driver) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rolling back transaction: %w", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// query runs a select and hands each row to scan.
func query(ctx context.Context, q dialect.ExecQuerier, s *entsql.Selector, scan func(*entsql.Rows) error) error {
	stmt, args := s.Query()
	if err := s.Err(); err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	var rows entsql.Rows
	if err := q.Query(ctx, stmt, args, &rows); err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(&rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	return rows.Err()
}

type querier interface {
	Query() (string, []any)
}

func exec(ctx context.Context, q dialect.ExecQuerier, b querier) (int64, error) {
	stmt, args := b.Query()

	var res sql.Result
	if err := q.Exec(ctx, stmt, args, &res); err != nil {
		return 0, fmt.Errorf("failed to exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

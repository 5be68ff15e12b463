package sqldriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var mistakeColumns = []string{
	"user_id", "pattern", "category", "examples", "count", "last_seen", "created_at",
}

// UpsertMistake creates or updates a mistake record in one transaction.
// The insert-if-absent guarantees the row exists before it is locked, so
// concurrent observations of the same pattern never lose a count.
func (d *Driver) UpsertMistake(ctx context.Context, in *storage.MistakeInput) (*storage.MistakeUpsert, error) {
	if in == nil || in.UserID == "" || in.Pattern == "" {
		return nil, errors.New("mistake input requires a user and a pattern")
	}
	now := in.Now.UTC()

	var out *storage.MistakeUpsert
	err := d.withTx(ctx, func(tx dialect.Tx) error {
		b := d.builder()

		ins := b.Insert(mistakesTable).
			Columns(mistakeColumns...).
			Values(in.UserID, in.Pattern, in.Category, "[]", 0, now, now).
			OnConflict(entsql.ConflictColumns("user_id", "pattern"), entsql.DoNothing())
		if _, err := exec(ctx, tx, ins); err != nil {
			return err
		}

		sel := d.lockRow(b.Select(mistakeColumns...).
			From(b.Table(mistakesTable)).
			Where(entsql.And(entsql.EQ("user_id", in.UserID), entsql.EQ("pattern", in.Pattern))))
		mistakes, err := scanMistakes(ctx, tx, sel)
		if err != nil {
			return err
		}
		if len(mistakes) == 0 {
			return storage.NotFoundError{Kind: "mistake", Key: in.UserID + "/" + in.Pattern}
		}
		m := mistakes[0]

		out = &storage.MistakeUpsert{Created: m.Count == 0}
		if !out.Created {
			out.PriorCount = m.Count
			out.PriorLastSeen = m.LastSeen
		}

		m.Count++
		m.LastSeen = now
		m.Examples = storage.AddExample(m.Examples, in.Example)
		if in.Category != "" {
			m.Category = in.Category
		}

		examples, err := marshalJSON(m.Examples)
		if err != nil {
			return fmt.Errorf("failed to marshal examples: %w", err)
		}
		upd := b.Update(mistakesTable).
			Set("count", m.Count).
			Set("last_seen", m.LastSeen).
			Set("examples", examples).
			Set("category", m.Category).
			Where(entsql.And(entsql.EQ("user_id", in.UserID), entsql.EQ("pattern", in.Pattern)))
		if _, err := exec(ctx, tx, upd); err != nil {
			return err
		}

		occ := b.Insert(occurrencesTable).
			Columns("user_id", "pattern", "seen_at").
			Values(in.UserID, in.Pattern, now)
		if _, err := exec(ctx, tx, occ); err != nil {
			return err
		}

		out.Mistake = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert mistake %s: %w", in.Pattern, err)
	}
	return out, nil
}

// GetMistake retrieves one mistake record.
func (d *Driver) GetMistake(ctx context.Context, userID, pattern string) (*storage.RecurringMistake, error) {
	b := d.builder()
	sel := b.Select(mistakeColumns...).
		From(b.Table(mistakesTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("pattern", pattern)))

	mistakes, err := scanMistakes(ctx, d.drv, sel)
	if err != nil {
		return nil, err
	}
	if len(mistakes) == 0 {
		return nil, storage.NotFoundError{Kind: "mistake", Key: userID + "/" + pattern}
	}
	return mistakes[0], nil
}

// ListMistakes returns matching records by descending count.
func (d *Driver) ListMistakes(ctx context.Context, filter storage.MistakeFilter) ([]*storage.RecurringMistake, error) {
	b := d.builder()
	sel := b.Select(mistakeColumns...).From(b.Table(mistakesTable))

	if filter.UserID != "" {
		sel.Where(entsql.EQ("user_id", filter.UserID))
	}
	if filter.Category != "" {
		sel.Where(entsql.EQ("category", filter.Category))
	}
	if !filter.Since.IsZero() {
		sel.Where(entsql.GTE("last_seen", filter.Since.UTC()))
	}
	sel.OrderBy(entsql.Desc("count"), entsql.Desc("last_seen"), entsql.Asc("pattern"))
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}

	return scanMistakes(ctx, d.drv, sel)
}

// CountOccurrences counts logged occurrences at or after since.
func (d *Driver) CountOccurrences(ctx context.Context, userID, pattern string, since time.Time) (int, error) {
	b := d.builder()
	sel := b.Select(entsql.Count("*")).
		From(b.Table(occurrencesTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("pattern", pattern),
			entsql.GTE("seen_at", since.UTC()),
		))

	var n int
	if err := query(ctx, d.drv, sel, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	}); err != nil {
		return 0, err
	}
	return n, nil
}

func scanMistakes(ctx context.Context, q dialect.ExecQuerier, sel *entsql.Selector) ([]*storage.RecurringMistake, error) {
	var result []*storage.RecurringMistake
	err := query(ctx, q, sel, func(rows *entsql.Rows) error {
		var (
			m        storage.RecurringMistake
			examples []byte
		)
		if err := rows.Scan(&m.UserID, &m.Pattern, &m.Category, &examples, &m.Count, &m.LastSeen, &m.CreatedAt); err != nil {
			return err
		}
		if err := unmarshalJSON(examples, &m.Examples); err != nil {
			return fmt.Errorf("decoding examples of %s: %w", m.Pattern, err)
		}
		if m.Examples == nil {
			m.Examples = []string{}
		}
		result = append(result, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package sqldriver

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var statsColumns = []string{"user_id", "day", "total_turns", "total_mistakes", "breakdown"}

// RecordTurn folds one turn into the user's aggregate for day.
func (d *Driver) RecordTurn(ctx context.Context, userID string, day time.Time, category string) error {
	key := storage.DayKey(day)

	err := d.withTx(ctx, func(tx dialect.Tx) error {
		b := d.builder()

		ins := b.Insert(statsTable).
			Columns(statsColumns...).
			Values(userID, key, 0, 0, "{}").
			OnConflict(entsql.ConflictColumns("user_id", "day"), entsql.DoNothing())
		if _, err := exec(ctx, tx, ins); err != nil {
			return err
		}

		sel := d.lockRow(b.Select(statsColumns...).
			From(b.Table(statsTable)).
			Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("day", key))))
		rows, err := scanStats(ctx, tx, sel)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return storage.NotFoundError{Kind: "daily stats", Key: userID + "/" + key}
		}
		s := rows[0]

		s.TotalTurns++
		if category != "" {
			s.TotalMistakes++
			s.Breakdown[category]++
		}
		breakdown, err := marshalJSON(s.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal breakdown: %w", err)
		}

		upd := b.Update(statsTable).
			Set("total_turns", s.TotalTurns).
			Set("total_mistakes", s.TotalMistakes).
			Set("breakdown", breakdown).
			Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("day", key)))
		_, err = exec(ctx, tx, upd)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// ListStats returns aggregates from since onward, oldest first.
func (d *Driver) ListStats(ctx context.Context, userID string, since time.Time) ([]*storage.DailyStats, error) {
	b := d.builder()
	sel := b.Select(statsColumns...).
		From(b.Table(statsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("day", storage.DayKey(since)))).
		OrderBy(entsql.Asc("day"))

	return scanStats(ctx, d.drv, sel)
}

func scanStats(ctx context.Context, q dialect.ExecQuerier, sel *entsql.Selector) ([]*storage.DailyStats, error) {
	var result []*storage.DailyStats
	err := query(ctx, q, sel, func(rows *entsql.Rows) error {
		var (
			s         storage.DailyStats
			breakdown []byte
		)
		if err := rows.Scan(&s.UserID, &s.Day, &s.TotalTurns, &s.TotalMistakes, &breakdown); err != nil {
			return err
		}
		if err := unmarshalJSON(breakdown, &s.Breakdown); err != nil {
			return fmt.Errorf("decoding breakdown for %s: %w", s.Day, err)
		}
		if s.Breakdown == nil {
			s.Breakdown = map[string]int{}
		}
		s.ComputeRate()
		result = append(result, &s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var profileColumns = []string{
	"user_id", "level", "learning_goal", "recurring_mistakes", "created_at", "updated_at",
}

// GetProfile retrieves a profile.
func (d *Driver) GetProfile(ctx context.Context, userID string) (*storage.UserProfile, error) {
	return d.getProfile(ctx, d.drv, userID)
}

// CreateProfile inserts p unless one already exists, then returns the
// stored profile.
func (d *Driver) CreateProfile(ctx context.Context, p *storage.UserProfile) (*storage.UserProfile, error) {
	if p == nil || p.UserID == "" {
		return nil, errors.New("profile requires a user")
	}

	cache, err := marshalJSON(p.RecurringMistakes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recurring mistakes: %w", err)
	}

	var stored *storage.UserProfile
	err = d.withTx(ctx, func(tx dialect.Tx) error {
		ins := d.builder().Insert(profilesTable).
			Columns(profileColumns...).
			Values(p.UserID, p.Level, p.LearningGoal, cache, p.CreatedAt.UTC(), p.UpdatedAt.UTC()).
			OnConflict(entsql.ConflictColumns("user_id"), entsql.DoNothing())
		if _, err := exec(ctx, tx, ins); err != nil {
			return err
		}

		var err error
		stored, err = d.getProfile(ctx, tx, p.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return stored, nil
}

// UpdateProfile overwrites the mutable fields of an existing profile.
func (d *Driver) UpdateProfile(ctx context.Context, p *storage.UserProfile) error {
	if p == nil {
		return errors.New("cannot store nil profile")
	}

	cache, err := marshalJSON(p.RecurringMistakes)
	if err != nil {
		return fmt.Errorf("failed to marshal recurring mistakes: %w", err)
	}

	upd := d.builder().Update(profilesTable).
		Set("level", p.Level).
		Set("learning_goal", p.LearningGoal).
		Set("recurring_mistakes", cache).
		Set("updated_at", p.UpdatedAt.UTC()).
		Where(entsql.EQ("user_id", p.UserID))

	n, err := exec(ctx, d.drv, upd)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "profile", Key: p.UserID}
	}
	return nil
}

// UpdateRecurringMistakes writes only the mistake cache and updated_at.
func (d *Driver) UpdateRecurringMistakes(ctx context.Context, userID string, cache []storage.RecurringMistake, at time.Time) error {
	data, err := marshalJSON(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal recurring mistakes: %w", err)
	}

	upd := d.builder().Update(profilesTable).
		Set("recurring_mistakes", data).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("user_id", userID))

	n, err := exec(ctx, d.drv, upd)
	if err != nil {
		return fmt.Errorf("failed to update recurring mistakes: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "profile", Key: userID}
	}
	return nil
}

func (d *Driver) getProfile(ctx context.Context, q dialect.ExecQuerier, userID string) (*storage.UserProfile, error) {
	b := d.builder()
	sel := b.Select(profileColumns...).
		From(b.Table(profilesTable)).
		Where(entsql.EQ("user_id", userID))

	var found *storage.UserProfile
	err := query(ctx, q, sel, func(rows *entsql.Rows) error {
		var (
			p     storage.UserProfile
			goal  sql.NullString
			cache []byte
		)
		if err := rows.Scan(&p.UserID, &p.Level, &goal, &cache, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		p.LearningGoal = goal.String
		if err := unmarshalJSON(cache, &p.RecurringMistakes); err != nil {
			return fmt.Errorf("decoding recurring mistakes of %s: %w", p.UserID, err)
		}
		found = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, storage.NotFoundError{Kind: "profile", Key: userID}
	}
	return found, nil
}

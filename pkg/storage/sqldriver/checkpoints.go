package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var checkpointColumns = []string{
	"id", "thread_id", "seq", "user_id", "state", "metadata", "message_count", "created_at",
}

// AppendCheckpoint stores cp with the next Seq for its thread.
func (d *Driver) AppendCheckpoint(ctx context.Context, cp *storage.Checkpoint) (*storage.Checkpoint, error) {
	if cp == nil {
		return nil, errors.New("cannot store nil checkpoint")
	}

	state, err := marshalJSON(cp.State)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var metadata any
	if len(cp.Metadata) > 0 {
		if metadata, err = marshalJSON(cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	stored := *cp
	stored.CreatedAt = cp.CreatedAt.UTC()

	err = d.withTx(ctx, func(tx dialect.Tx) error {
		b := d.builder()

		var maxSeq sql.NullInt64
		sel := b.Select(entsql.Max("seq")).
			From(b.Table(checkpointsTable)).
			Where(entsql.EQ("thread_id", cp.ThreadID))
		if err := query(ctx, tx, sel, func(rows *entsql.Rows) error {
			return rows.Scan(&maxSeq)
		}); err != nil {
			return err
		}
		stored.Seq = maxSeq.Int64 + 1

		ins := b.Insert(checkpointsTable).
			Columns(checkpointColumns...).
			Values(stored.ID, stored.ThreadID, stored.Seq, stored.State.UserID, state, metadata, stored.MessageCount, stored.CreatedAt)
		_, err := exec(ctx, tx, ins)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append checkpoint: %w", err)
	}

	return &stored, nil
}

// GetCheckpoint retrieves a checkpoint by id.
func (d *Driver) GetCheckpoint(ctx context.Context, threadID, id string) (*storage.Checkpoint, error) {
	b := d.builder()
	sel := b.Select(checkpointColumns...).
		From(b.Table(checkpointsTable)).
		Where(entsql.And(entsql.EQ("thread_id", threadID), entsql.EQ("id", id)))

	cps, err := d.scanCheckpoints(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, storage.NotFoundError{Kind: "checkpoint", Key: id}
	}
	return cps[0], nil
}

// ListCheckpoints returns a thread's checkpoints newest first.
func (d *Driver) ListCheckpoints(ctx context.Context, threadID string, beforeSeq int64, limit int) ([]*storage.Checkpoint, error) {
	if limit <= 0 {
		limit = storage.DefaultCheckpointLimit
	}

	b := d.builder()
	sel := b.Select(checkpointColumns...).
		From(b.Table(checkpointsTable)).
		Where(entsql.EQ("thread_id", threadID))
	if beforeSeq > 0 {
		sel.Where(entsql.LT("seq", beforeSeq))
	}
	sel.OrderBy(entsql.Desc("seq")).Limit(limit)

	return d.scanCheckpoints(ctx, sel)
}

// DeleteThread removes a thread's checkpoints and transcript.
func (d *Driver) DeleteThread(ctx context.Context, threadID string) (int, error) {
	var removed int64
	err := d.withTx(ctx, func(tx dialect.Tx) error {
		b := d.builder()

		n, err := exec(ctx, tx, b.Delete(checkpointsTable).Where(entsql.EQ("thread_id", threadID)))
		if err != nil {
			return err
		}
		removed = n

		_, err = exec(ctx, tx, b.Delete(messagesTable).Where(entsql.EQ("thread_id", threadID)))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return int(removed), nil
}

func (d *Driver) scanCheckpoints(ctx context.Context, sel *entsql.Selector) ([]*storage.Checkpoint, error) {
	var result []*storage.Checkpoint
	err := query(ctx, d.drv, sel, func(rows *entsql.Rows) error {
		var (
			cp       storage.Checkpoint
			userID   string
			state    []byte
			metadata []byte
		)
		if err := rows.Scan(&cp.ID, &cp.ThreadID, &cp.Seq, &userID, &state, &metadata, &cp.MessageCount, &cp.CreatedAt); err != nil {
			return err
		}
		if err := unmarshalJSON(state, &cp.State); err != nil {
			return fmt.Errorf("decoding state of checkpoint %s: %w", cp.ID, err)
		}
		if err := unmarshalJSON(metadata, &cp.Metadata); err != nil {
			return fmt.Errorf("decoding metadata of checkpoint %s: %w", cp.ID, err)
		}
		result = append(result, &cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

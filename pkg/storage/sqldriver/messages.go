package sqldriver

import (
	"context"
	"fmt"
	"slices"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var messageColumns = []string{"id", "thread_id", "user_id", "role", "content", "created_at"}

// AppendMessages appends transcript entries in one transaction.
func (d *Driver) AppendMessages(ctx context.Context, msgs ...*storage.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	ins := d.builder().Insert(messagesTable).Columns(messageColumns[1:]...)
	for _, m := range msgs {
		if m == nil {
			continue
		}
		ins.Values(m.ThreadID, m.UserID, m.Role, m.Content, m.CreatedAt.UTC())
	}

	return d.withTx(ctx, func(tx dialect.Tx) error {
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("failed to append messages: %w", err)
		}
		return nil
	})
}

// ListMessages returns the most recent limit messages, oldest first.
func (d *Driver) ListMessages(ctx context.Context, threadID string, limit int) ([]*storage.ChatMessage, error) {
	b := d.builder()
	sel := b.Select(messageColumns...).
		From(b.Table(messagesTable)).
		Where(entsql.EQ("thread_id", threadID)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var result []*storage.ChatMessage
	err := query(ctx, d.drv, sel, func(rows *entsql.Rows) error {
		var m storage.ChatMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return err
		}
		result = append(result, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(result)
	return result, nil
}

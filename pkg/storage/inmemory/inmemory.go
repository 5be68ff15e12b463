// Package inmemory provides a map-backed storage driver for tests and
// ephemeral sessions.
package inmemory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/tutor/pkg/storage"
)

type mistakeKey struct {
	userID  string
	pattern string
}

type statsKey struct {
	userID string
	day    string
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map below; upserts hold the write lock for the whole
	// read-modify-write.
	mu sync.RWMutex

	checkpoints map[string][]*storage.Checkpoint
	mistakes    map[mistakeKey]*storage.RecurringMistake
	occurrences map[mistakeKey][]time.Time
	profiles    map[string]*storage.UserProfile
	messages    map[string][]*storage.ChatMessage
	stats       map[statsKey]*storage.DailyStats

	nextMessageID int64
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		checkpoints: make(map[string][]*storage.Checkpoint),
		mistakes:    make(map[mistakeKey]*storage.RecurringMistake),
		occurrences: make(map[mistakeKey][]time.Time),
		profiles:    make(map[string]*storage.UserProfile),
		messages:    make(map[string][]*storage.ChatMessage),
		stats:       make(map[statsKey]*storage.DailyStats),
	}
}

// AppendCheckpoint stores a copy of cp with the next Seq for its thread.
func (d *Driver) AppendCheckpoint(_ context.Context, cp *storage.Checkpoint) (*storage.Checkpoint, error) {
	if cp == nil {
		return nil, errors.New("cannot store nil checkpoint")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := copyCheckpoint(cp)
	existing := d.checkpoints[cp.ThreadID]
	stored.Seq = int64(len(existing)) + 1
	d.checkpoints[cp.ThreadID] = append(existing, stored)

	return copyCheckpoint(stored), nil
}

// GetCheckpoint retrieves a checkpoint by id.
func (d *Driver) GetCheckpoint(_ context.Context, threadID, id string) (*storage.Checkpoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, cp := range d.checkpoints[threadID] {
		if cp.ID == id {
			return copyCheckpoint(cp), nil
		}
	}
	return nil, storage.NotFoundError{Kind: "checkpoint", Key: id}
}

// ListCheckpoints returns a thread's checkpoints newest first.
func (d *Driver) ListCheckpoints(_ context.Context, threadID string, beforeSeq int64, limit int) ([]*storage.Checkpoint, error) {
	if limit <= 0 {
		limit = storage.DefaultCheckpointLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.checkpoints[threadID]
	result := make([]*storage.Checkpoint, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		if beforeSeq > 0 && all[i].Seq >= beforeSeq {
			continue
		}
		result = append(result, copyCheckpoint(all[i]))
	}
	return result, nil
}

// DeleteThread removes a thread's checkpoints and transcript.
func (d *Driver) DeleteThread(_ context.Context, threadID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.checkpoints[threadID])
	delete(d.checkpoints, threadID)
	delete(d.messages, threadID)
	return n, nil
}

// UpsertMistake creates or updates a mistake record under the write lock.
func (d *Driver) UpsertMistake(_ context.Context, in *storage.MistakeInput) (*storage.MistakeUpsert, error) {
	if in == nil || in.UserID == "" || in.Pattern == "" {
		return nil, errors.New("mistake input requires a user and a pattern")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := mistakeKey{in.UserID, in.Pattern}
	out := &storage.MistakeUpsert{}

	m, ok := d.mistakes[key]
	if !ok {
		m = &storage.RecurringMistake{
			UserID:    in.UserID,
			Pattern:   in.Pattern,
			Category:  in.Category,
			Examples:  []string{},
			CreatedAt: in.Now,
		}
		d.mistakes[key] = m
		out.Created = true
	} else {
		out.PriorCount = m.Count
		out.PriorLastSeen = m.LastSeen
	}

	m.Count++
	m.LastSeen = in.Now
	m.Examples = storage.AddExample(m.Examples, in.Example)
	if in.Category != "" {
		m.Category = in.Category
	}

	d.occurrences[key] = append(d.occurrences[key], in.Now)

	out.Mistake = copyMistake(m)
	return out, nil
}

// GetMistake retrieves one mistake record.
func (d *Driver) GetMistake(_ context.Context, userID, pattern string) (*storage.RecurringMistake, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.mistakes[mistakeKey{userID, pattern}]
	if !ok {
		return nil, storage.NotFoundError{Kind: "mistake", Key: userID + "/" + pattern}
	}
	return copyMistake(m), nil
}

// ListMistakes returns matching records by descending count.
func (d *Driver) ListMistakes(_ context.Context, filter storage.MistakeFilter) ([]*storage.RecurringMistake, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.RecurringMistake
	for key, m := range d.mistakes {
		if filter.UserID != "" && key.userID != filter.UserID {
			continue
		}
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if !filter.Since.IsZero() && m.LastSeen.Before(filter.Since) {
			continue
		}
		result = append(result, copyMistake(m))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if !result[i].LastSeen.Equal(result[j].LastSeen) {
			return result[i].LastSeen.After(result[j].LastSeen)
		}
		return result[i].Pattern < result[j].Pattern
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CountOccurrences counts logged occurrences at or after since.
func (d *Driver) CountOccurrences(_ context.Context, userID, pattern string, since time.Time) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, t := range d.occurrences[mistakeKey{userID, pattern}] {
		if !t.Before(since) {
			n++
		}
	}
	return n, nil
}

// GetProfile retrieves a profile.
func (d *Driver) GetProfile(_ context.Context, userID string) (*storage.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[userID]
	if !ok {
		return nil, storage.NotFoundError{Kind: "profile", Key: userID}
	}
	return copyProfile(p), nil
}

// CreateProfile inserts p unless one already exists.
func (d *Driver) CreateProfile(_ context.Context, p *storage.UserProfile) (*storage.UserProfile, error) {
	if p == nil || p.UserID == "" {
		return nil, errors.New("profile requires a user")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.profiles[p.UserID]; ok {
		return copyProfile(existing), nil
	}
	d.profiles[p.UserID] = copyProfile(p)
	return copyProfile(p), nil
}

// UpdateProfile overwrites an existing profile.
func (d *Driver) UpdateProfile(_ context.Context, p *storage.UserProfile) error {
	if p == nil {
		return errors.New("cannot store nil profile")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.profiles[p.UserID]
	if !ok {
		return storage.NotFoundError{Kind: "profile", Key: p.UserID}
	}

	updated := copyProfile(p)
	updated.CreatedAt = existing.CreatedAt
	d.profiles[p.UserID] = updated
	return nil
}

// UpdateRecurringMistakes replaces the mistake cache of an existing profile.
func (d *Driver) UpdateRecurringMistakes(_ context.Context, userID string, cache []storage.RecurringMistake, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.profiles[userID]
	if !ok {
		return storage.NotFoundError{Kind: "profile", Key: userID}
	}

	updated := copyProfile(&storage.UserProfile{
		UserID:            existing.UserID,
		Level:             existing.Level,
		LearningGoal:      existing.LearningGoal,
		RecurringMistakes: cache,
		CreatedAt:         existing.CreatedAt,
		UpdatedAt:         at,
	})
	d.profiles[userID] = updated
	return nil
}

// AppendMessages appends transcript entries, assigning ids.
func (d *Driver) AppendMessages(_ context.Context, msgs ...*storage.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range msgs {
		if m == nil {
			continue
		}
		d.nextMessageID++
		stored := *m
		stored.ID = d.nextMessageID
		d.messages[m.ThreadID] = append(d.messages[m.ThreadID], &stored)
	}
	return nil
}

// ListMessages returns the most recent limit messages, oldest first.
func (d *Driver) ListMessages(_ context.Context, threadID string, limit int) ([]*storage.ChatMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.messages[threadID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}

	result := make([]*storage.ChatMessage, 0, len(all))
	for _, m := range all {
		c := *m
		result = append(result, &c)
	}
	return result, nil
}

// RecordTurn folds one turn into the user's aggregate for day.
func (d *Driver) RecordTurn(_ context.Context, userID string, day time.Time, category string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := statsKey{userID, storage.DayKey(day)}
	s, ok := d.stats[key]
	if !ok {
		s = &storage.DailyStats{UserID: userID, Day: key.day, Breakdown: map[string]int{}}
		d.stats[key] = s
	}

	s.TotalTurns++
	if category != "" {
		s.TotalMistakes++
		s.Breakdown[category]++
	}
	s.ComputeRate()
	return nil
}

// ListStats returns aggregates from since onward, oldest first.
func (d *Driver) ListStats(_ context.Context, userID string, since time.Time) ([]*storage.DailyStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	from := storage.DayKey(since)
	var result []*storage.DailyStats
	for key, s := range d.stats {
		if key.userID != userID || key.day < from {
			continue
		}
		c := *s
		c.Breakdown = maps.Clone(s.Breakdown)
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result, nil
}

// Close is a no-op for the in-memory storer.
func (d *Driver) Close() error {
	return nil
}

func copyCheckpoint(cp *storage.Checkpoint) *storage.Checkpoint {
	c := *cp
	c.State.Messages = slices.Clone(cp.State.Messages)
	c.State.MistakeSnapshot = slices.Clone(cp.State.MistakeSnapshot)
	c.Metadata = maps.Clone(cp.Metadata)
	return &c
}

func copyMistake(m *storage.RecurringMistake) *storage.RecurringMistake {
	c := *m
	c.Examples = slices.Clone(m.Examples)
	return &c
}

func copyProfile(p *storage.UserProfile) *storage.UserProfile {
	c := *p
	c.RecurringMistakes = slices.Clone(p.RecurringMistakes)
	return &c
}

// Package stats keeps daily learning aggregates per learner.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/tutor/pkg/storage"
)

const (
	DefaultDays = 7
	MaxDays     = 365
)

// Recorder records turns and reads aggregates.
type Recorder struct {
	store storage.StatsStore
	now   func() time.Time
}

// Report aggregates a range of days.
type Report struct {
	UserID        string                `json:"userId"`
	Days          int                   `json:"days"`
	TotalTurns    int                   `json:"totalTurns"`
	TotalMistakes int                   `json:"totalMistakes"`
	MistakeRate   float64               `json:"mistakeRate"`
	Breakdown     map[string]int        `json:"breakdown"`
	Daily         []*storage.DailyStats `json:"daily"`
}

// NewRecorder creates a recorder over store.
func NewRecorder(store storage.StatsStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record counts one turn for today. A non-empty category counts a mistake.
func (r *Recorder) Record(ctx context.Context, userID, category string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	return r.store.RecordTurn(ctx, userID, r.now(), category)
}

// Range returns the last days calendar days of aggregates, including
// today. days is clamped to [1, MaxDays].
func (r *Recorder) Range(ctx context.Context, userID string, days int) (*Report, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	days = max(1, min(days, MaxDays))

	since := r.now().UTC().AddDate(0, 0, -(days - 1))
	daily, err := r.store.ListStats(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("listing stats: %w", err)
	}

	report := &Report{
		UserID:    userID,
		Days:      days,
		Breakdown: map[string]int{},
		Daily:     daily,
	}
	if report.Daily == nil {
		report.Daily = []*storage.DailyStats{}
	}
	for _, d := range daily {
		report.TotalTurns += d.TotalTurns
		report.TotalMistakes += d.TotalMistakes
		for cat, n := range d.Breakdown {
			report.Breakdown[cat] += n
		}
	}
	if report.TotalTurns > 0 {
		report.MistakeRate = float64(report.TotalMistakes) / float64(report.TotalTurns)
	}
	return report, nil
}

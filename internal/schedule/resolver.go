// Package schedule turns a wall-clock instant into the set of sounds due in
// that minute for the active profile.
package schedule

import (
	"context"
	"time"

	"kron/internal/storage"
	logx "kron/pkg/logx"
)

// MinuteKeyLayout identifies one calendar minute. Including the date keeps the
// key unique across hour and day rollovers.
const MinuteKeyLayout = "2006-01-02 15:04"

// MinuteKey formats t (already in the scheduler location) as a dedupe key.
func MinuteKey(t time.Time) string { return t.Format(MinuteKeyLayout) }

// Querier is the storage capability the resolver needs.
type Querier interface {
	DueSounds(ctx context.Context, q storage.DueQuery) ([]storage.DueSound, error)
}

// SoundRef is one due playback. An empty Path asks for the default sound.
type SoundRef struct {
	ScheduleID int64
	Path       string
}

func (r SoundRef) IsDefault() bool { return r.Path == "" }

// QueryAt derives the storage query for now. now must already be expressed in
// the scheduler location; its wall clock is used as-is.
func QueryAt(now time.Time, profileID int64) storage.DueQuery {
	return storage.DueQuery{
		ProfileID: profileID,
		Date:      now.Format(storage.DateLayout),
		Minutes:   now.Hour()*60 + now.Minute(),
		Weekday:   storage.ISOWeekday(now),
	}
}

type Resolver struct {
	q   Querier
	log logx.Logger
}

func NewResolver(q Querier, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{q: q, log: log}
}

// Due returns the sounds due at now for profileID, in storage order. Storage
// errors are returned unchanged.
func (r *Resolver) Due(ctx context.Context, now time.Time, profileID int64) ([]SoundRef, error) {
	q := QueryAt(now, profileID)
	rows, err := r.q.DueSounds(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]SoundRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, SoundRef{ScheduleID: row.ScheduleID, Path: row.File})
	}
	if len(out) > 0 {
		r.log.Debug("schedules due",
			logx.Int64("profile", profileID),
			logx.String("date", q.Date),
			logx.Int("minutes", q.Minutes),
			logx.Int("count", len(out)),
		)
	}
	return out, nil
}

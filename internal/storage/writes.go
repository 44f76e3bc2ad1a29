package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

func (s *Store) CreateProfile(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: profile name is empty", ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO profiles(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create profile: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("profiles: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateSound(ctx context.Context, name, fileName string) (int64, error) {
	if strings.TrimSpace(fileName) == "" {
		return 0, fmt.Errorf("%w: sound file name is empty", ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO sounds(name, file_name) VALUES(?, ?)`, name, fileName)
	if err != nil {
		return 0, fmt.Errorf("create sound: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Sounds(ctx context.Context) ([]Sound, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, file_name FROM sounds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sounds: %w", err)
	}
	defer rows.Close()
	var out []Sound
	for rows.Next() {
		var snd Sound
		if err := rows.Scan(&snd.ID, &snd.Name, &snd.FileName); err != nil {
			return nil, fmt.Errorf("sounds: scan: %w", err)
		}
		out = append(out, snd)
	}
	return out, rows.Err()
}

func (s *Store) Sound(ctx context.Context, id int64) (Sound, error) {
	var snd Sound
	err := s.db.QueryRowContext(ctx, `SELECT id, name, file_name FROM sounds WHERE id = ?`, id).
		Scan(&snd.ID, &snd.Name, &snd.FileName)
	if errors.Is(err, sql.ErrNoRows) {
		return Sound{}, fmt.Errorf("sound %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Sound{}, fmt.Errorf("sound %d: %w", id, err)
	}
	return snd, nil
}

// DeleteSound removes the row and returns it so the caller can drop the asset.
// Schedules pointing at it fall back to the default sound (ON DELETE SET NULL).
func (s *Store) DeleteSound(ctx context.Context, id int64) (Sound, error) {
	snd, err := s.Sound(ctx, id)
	if err != nil {
		return Sound{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sounds WHERE id = ?`, id); err != nil {
		return Sound{}, fmt.Errorf("delete sound %d: %w", id, err)
	}
	return snd, nil
}

// CreateSchedule inserts a schedule and its weekday memberships atomically.
func (s *Store) CreateSchedule(ctx context.Context, sc Schedule) (int64, error) {
	if err := validateSchedule(sc); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schedules(profile_id, name, sound_id, time, repeat, start_date, end_date, is_active)
		 VALUES(?,?,?,?,?,?,?,?)`,
		sc.ProfileID, sc.Name, nullInt64(sc.SoundID), sc.Time, string(sc.Repeat),
		sc.StartDate, nullStr(sc.EndDate), sc.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	for _, d := range sc.Days {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO schedule_days(schedule_id, day_of_week) VALUES(?, ?)`, id, d); err != nil {
			return 0, fmt.Errorf("create schedule days: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	return id, nil
}

// PutOverride inserts or replaces the override for (schedule, original date).
func (s *Store) PutOverride(ctx context.Context, o Override) error {
	if _, err := time.Parse(DateLayout, o.OriginalDate); err != nil {
		return fmt.Errorf("%w: original_date %q", ErrInvalid, o.OriginalDate)
	}
	if o.NewTime != nil && (*o.NewTime < 0 || *o.NewTime >= 24*60) {
		return fmt.Errorf("%w: new_time %d", ErrInvalid, *o.NewTime)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_overrides(schedule_id, original_date, new_date, new_time, new_sound_id, is_cancelled)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(schedule_id, original_date) DO UPDATE SET
			new_date = excluded.new_date,
			new_time = excluded.new_time,
			new_sound_id = excluded.new_sound_id,
			is_cancelled = excluded.is_cancelled`,
		o.ScheduleID, o.OriginalDate, nullStr(o.NewDate), nullInt(o.NewTime), nullInt64(o.NewSoundID), o.IsCancelled,
	)
	if err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}

func validateSchedule(sc Schedule) error {
	if !sc.Repeat.Valid() {
		return fmt.Errorf("%w: repeat %q", ErrInvalid, sc.Repeat)
	}
	if sc.Time < 0 || sc.Time >= 24*60 {
		return fmt.Errorf("%w: time %d", ErrInvalid, sc.Time)
	}
	if _, err := time.Parse(DateLayout, sc.StartDate); err != nil {
		return fmt.Errorf("%w: start_date %q", ErrInvalid, sc.StartDate)
	}
	if sc.EndDate != nil {
		if _, err := time.Parse(DateLayout, *sc.EndDate); err != nil {
			return fmt.Errorf("%w: end_date %q", ErrInvalid, *sc.EndDate)
		}
	}
	if sc.Repeat == RepeatWeekly && len(sc.Days) == 0 {
		return fmt.Errorf("%w: weekly schedule without days", ErrInvalid)
	}
	for _, d := range sc.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: day_of_week %d", ErrInvalid, d)
		}
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// dueQuery resolves, in one pass, the schedules of a profile that fire in the
// given minute. An override row for the date replaces time and sound and can
// cancel the occurrence; the recurrence branch decides whether the date
// itself qualifies.
const dueQuery = `
SELECT
	s.id,
	COALESCE(snd_override.file_name, snd.file_name) AS sound_file_name
FROM schedules s
LEFT JOIN schedule_overrides so ON s.id = so.schedule_id AND so.original_date = ?
LEFT JOIN sounds snd ON s.sound_id = snd.id
LEFT JOIN sounds snd_override ON so.new_sound_id = snd_override.id
WHERE
	s.profile_id = ?
	AND s.is_active = 1
	AND (so.is_cancelled IS NULL OR so.is_cancelled = 0)
	AND COALESCE(so.new_time, s.time) = ?
	AND (
		(s.repeat = 'once' AND s.start_date = ?)
		OR
		(s.repeat = 'daily' AND s.start_date <= ? AND (s.end_date IS NULL OR s.end_date >= ?))
		OR
		(s.repeat = 'weekly' AND s.start_date <= ? AND (s.end_date IS NULL OR s.end_date >= ?)
			AND EXISTS (SELECT 1 FROM schedule_days sd WHERE sd.schedule_id = s.id AND sd.day_of_week = ?))
	)
ORDER BY s.id`

// DueSounds returns one entry per schedule due at q. Errors are returned
// as-is (wrapped); callers decide whether a failed minute is fatal.
func (s *Store) DueSounds(ctx context.Context, q DueQuery) ([]DueSound, error) {
	rows, err := s.db.QueryContext(ctx, dueQuery,
		q.Date,      // so.original_date
		q.ProfileID, // s.profile_id
		q.Minutes,   // effective time
		q.Date,      // once start_date
		q.Date,      // daily start_date
		q.Date,      // daily end_date
		q.Date,      // weekly start_date
		q.Date,      // weekly end_date
		q.Weekday,   // weekly day_of_week
	)
	if err != nil {
		return nil, fmt.Errorf("due sounds: %w", err)
	}
	defer rows.Close()

	var out []DueSound
	for rows.Next() {
		var (
			d    DueSound
			file sql.NullString
		)
		if err := rows.Scan(&d.ScheduleID, &file); err != nil {
			return nil, fmt.Errorf("due sounds: scan: %w", err)
		}
		d.File = file.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("due sounds: %w", err)
	}
	return out, nil
}

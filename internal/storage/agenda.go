package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const agendaQuery = `
SELECT
	s.id,
	s.name,
	s.repeat,
	COALESCE(so.new_time, s.time) AS final_time,
	COALESCE(snd_override.name, snd.name) AS sound_name,
	COALESCE(snd_override.file_name, snd.file_name) AS sound_file,
	so.new_date
FROM schedules s
LEFT JOIN sounds snd ON s.sound_id = snd.id
LEFT JOIN schedule_overrides so ON s.id = so.schedule_id AND so.original_date = ?
LEFT JOIN sounds snd_override ON so.new_sound_id = snd_override.id
WHERE
	s.profile_id = ?
	AND s.is_active = 1
	AND (
		(s.repeat = 'once' AND s.start_date = ?)
		OR
		(s.repeat = 'daily' AND s.start_date <= ? AND (s.end_date IS NULL OR s.end_date >= ?))
		OR
		(s.repeat = 'weekly' AND s.start_date <= ? AND (s.end_date IS NULL OR s.end_date >= ?)
			AND EXISTS (SELECT 1 FROM schedule_days sd WHERE sd.schedule_id = s.id AND sd.day_of_week = ?))
	)
	AND (so.is_cancelled IS NULL OR so.is_cancelled = 0)
	AND (so.new_date IS NULL OR so.new_date = ?)`

// Agenda lists the occurrences of a profile's schedules on day, ordered by
// effective time. search, when set, filters by schedule name (LIKE %search%).
func (s *Store) Agenda(ctx context.Context, profileID int64, day time.Time, search string) ([]AgendaEntry, error) {
	date := day.Format(DateLayout)
	args := []any{date, profileID, date, date, date, date, date, ISOWeekday(day), date}
	q := agendaQuery
	if search = strings.TrimSpace(search); search != "" {
		q += "\n\tAND s.name LIKE ?"
		args = append(args, "%"+search+"%")
	}
	q += "\nORDER BY final_time ASC, s.id ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("agenda: %w", err)
	}
	defer rows.Close()

	var out []AgendaEntry
	for rows.Next() {
		var (
			e                    AgendaEntry
			repeat               string
			soundName, soundFile sql.NullString
			newDate              sql.NullString
		)
		if err := rows.Scan(&e.ScheduleID, &e.Name, &repeat, &e.Time, &soundName, &soundFile, &newDate); err != nil {
			return nil, fmt.Errorf("agenda: scan: %w", err)
		}
		e.Repeat = Repeat(repeat)
		e.SoundName = soundName.String
		e.SoundFile = soundFile.String
		if newDate.Valid {
			v := newDate.String
			e.NewDate = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agenda: %w", err)
	}
	return out, nil
}

// ISOWeekday maps time.Weekday to Monday=1..Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

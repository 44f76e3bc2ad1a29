// Package storage is the sqlite layer shared with the kron UI.
//
// The scheduler only reads from it (DueSounds). The write helpers exist for
// the CLI and for tests; the UI remains the primary writer.
//
// Tables:
//   - profiles(id, name)
//   - sounds(id, name, file_name)
//   - schedules(id, profile_id, name, sound_id NULL, time, repeat, start_date, end_date NULL, is_active)
//   - schedule_days(schedule_id, day_of_week 1..7)
//   - schedule_overrides(schedule_id, original_date, new_date NULL, new_time NULL, new_sound_id NULL, is_cancelled NULL)
//
// Dates are stored as 'YYYY-MM-DD' text so lexical comparison is date order.
package storage

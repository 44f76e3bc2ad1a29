package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrInvalid  = errors.New("storage: invalid value")
)

// DateLayout is the on-disk date format.
const DateLayout = "2006-01-02"

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

type Repeat string

const (
	RepeatOnce   Repeat = "once"
	RepeatDaily  Repeat = "daily"
	RepeatWeekly Repeat = "weekly"
)

func (r Repeat) Valid() bool {
	switch r {
	case RepeatOnce, RepeatDaily, RepeatWeekly:
		return true
	}
	return false
}

type Profile struct {
	ID   int64
	Name string
}

type Sound struct {
	ID       int64
	Name     string
	FileName string
}

// Schedule is a base schedule row plus its weekday memberships.
type Schedule struct {
	ID        int64
	ProfileID int64
	Name      string
	SoundID   *int64
	Time      int // minutes since midnight
	Repeat    Repeat
	StartDate string
	EndDate   *string
	IsActive  bool
	Days      []int // ISO weekdays, weekly only
}

// Override replaces a schedule's fields for one date.
type Override struct {
	ScheduleID   int64
	OriginalDate string
	NewDate      *string
	NewTime      *int
	NewSoundID   *int64
	IsCancelled  bool
}

// DueQuery is one minute of wall-clock time for one profile.
type DueQuery struct {
	ProfileID int64
	Date      string // YYYY-MM-DD
	Minutes   int    // hour*60 + minute
	Weekday   int    // ISO, Monday=1..Sunday=7
}

// DueSound is one schedule due in the queried minute. An empty File means
// "play the default sound".
type DueSound struct {
	ScheduleID int64
	File       string
}

// AgendaEntry is one occurrence of a schedule on a date, after overrides.
type AgendaEntry struct {
	ScheduleID  int64
	Name        string
	Repeat      Repeat
	Time        int
	SoundName   string
	SoundFile   string
	NewDate     *string
	IsCancelled bool
}

package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kron/internal/storage"
	logx "kron/pkg/logx"
)

type fakeQuerier struct {
	got  []storage.DueQuery
	rows []storage.DueSound
	err  error
}

func (f *fakeQuerier) DueSounds(_ context.Context, q storage.DueQuery) ([]storage.DueSound, error) {
	f.got = append(f.got, q)
	return f.rows, f.err
}

func TestQueryAt(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want storage.DueQuery
	}{
		{
			name: "friday morning",
			now:  time.Date(2024, 3, 15, 8, 0, 42, 0, time.UTC),
			want: storage.DueQuery{ProfileID: 1, Date: "2024-03-15", Minutes: 480, Weekday: 5},
		},
		{
			name: "sunday is seven",
			now:  time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC),
			want: storage.DueQuery{ProfileID: 1, Date: "2024-03-17", Minutes: 1439, Weekday: 7},
		},
		{
			name: "midnight",
			now:  time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
			want: storage.DueQuery{ProfileID: 1, Date: "2024-03-18", Minutes: 0, Weekday: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryAt(tt.now, 1))
		})
	}
}

func TestQueryAtUsesLocalWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC).In(loc)

	q := QueryAt(now, 1)
	assert.Equal(t, "2024-03-16", q.Date)
	assert.Equal(t, 90, q.Minutes)
	assert.Equal(t, 6, q.Weekday)
}

func TestMinuteKeyDistinguishesHours(t *testing.T) {
	a := time.Date(2024, 3, 15, 8, 5, 0, 0, time.UTC)
	b := a.Add(time.Hour)
	assert.NotEqual(t, MinuteKey(a), MinuteKey(b))
	assert.Equal(t, MinuteKey(a), MinuteKey(a.Add(59*time.Second)))
	assert.Equal(t, "2024-03-15 08:05", MinuteKey(a))
}

func TestDueMapsRows(t *testing.T) {
	fq := &fakeQuerier{rows: []storage.DueSound{{ScheduleID: 1, File: "bell.wav"}, {ScheduleID: 2}}}
	r := NewResolver(fq, logx.Nop())

	got, err := r.Due(context.Background(), time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bell.wav", got[0].Path)
	assert.False(t, got[0].IsDefault())
	assert.True(t, got[1].IsDefault())
	require.Len(t, fq.got, 1)
	assert.EqualValues(t, 7, fq.got[0].ProfileID)
}

func TestDuePropagatesStorageError(t *testing.T) {
	boom := errors.New("no such table: schedules")
	r := NewResolver(&fakeQuerier{err: boom}, logx.Nop())

	_, err := r.Due(context.Background(), time.Now(), 1)
	assert.ErrorIs(t, err, boom)
}

// End-to-end against sqlite: the three reference scenarios.
func TestDueScenarios(t *testing.T) {
	ctx := context.Background()
	st, err := storage.Open(ctx, storage.Config{Path: filepath.Join(t.TempDir(), "kron.db")}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	pid, err := st.CreateProfile(ctx, "default")
	require.NoError(t, err)
	bell, err := st.CreateSound(ctx, "bell", "bell.wav")
	require.NoError(t, err)
	a, err := st.CreateSchedule(ctx, storage.Schedule{
		ProfileID: pid, Time: 480, Repeat: storage.RepeatDaily, StartDate: "2024-01-01", SoundID: &bell, IsActive: true,
	})
	require.NoError(t, err)
	_, err = st.CreateSchedule(ctx, storage.Schedule{
		ProfileID: pid, Time: 600, Repeat: storage.RepeatWeekly, StartDate: "2024-01-01", Days: []int{1, 3, 5}, IsActive: true,
	})
	require.NoError(t, err)

	r := NewResolver(st, logx.Nop())

	got, err := r.Due(ctx, time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local), pid)
	require.NoError(t, err)
	assert.Equal(t, []SoundRef{{ScheduleID: a, Path: "bell.wav"}}, got)

	got, err = r.Due(ctx, time.Date(2024, 3, 12, 10, 0, 0, 0, time.Local), pid) // Tuesday
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, st.PutOverride(ctx, storage.Override{ScheduleID: a, OriginalDate: "2024-03-15", IsCancelled: true}))
	got, err = r.Due(ctx, time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local), pid)
	require.NoError(t, err)
	assert.Empty(t, got)
}

package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghai1803/newspulse/internal/models"
)

type memStore struct {
	state   models.CircuitState
	readErr error
	writes  int
}

func (m *memStore) ReadCircuit(context.Context) (models.CircuitState, error) {
	return m.state, m.readErr
}

func (m *memStore) WriteCircuit(_ context.Context, s models.CircuitState) error {
	m.writes++
	m.state = s
	return nil
}

func TestNextBoundary(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "before today's boundary",
			now:  time.Date(2026, 10, 19, 3, 30, 0, 0, time.UTC),
			hour: 7,
			want: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "after today's boundary",
			now:  time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
			hour: 7,
			want: time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the boundary",
			now:  time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
			hour: 7,
			want: time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 10, 31, 23, 59, 0, 0, time.UTC),
			hour: 0,
			want: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input",
			now:  time.Date(2026, 10, 19, 1, 0, 0, 0, time.FixedZone("KST", 9*3600)),
			hour: 7,
			want: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBoundary(tt.now, tt.hour)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestBreaker_TripThenOpenUntilBoundary(t *testing.T) {
	store := &memStore{}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	b := New(store, 7, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	open, err := b.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)

	until, err := b.Trip(ctx, "429 quota exceeded")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC), until)
	assert.Equal(t, "429 quota exceeded", store.state.Reason)

	open, err = b.IsOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	now = until.Add(-time.Nanosecond)
	open, _ = b.IsOpen(ctx)
	assert.True(t, open, "open strictly before disabled_until")

	now = until
	open, _ = b.IsOpen(ctx)
	assert.False(t, open, "closed at disabled_until")

	now = until.Add(time.Hour)
	open, _ = b.IsOpen(ctx)
	assert.False(t, open)
}

func TestBreaker_StateSurvivesNewInstance(t *testing.T) {
	store := &memStore{}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := WithClock(func() time.Time { return now })

	_, err := New(store, 7, clock).Trip(context.Background(), "quota")
	require.NoError(t, err)

	open, err := New(store, 7, clock).IsOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestBreaker_Reset(t *testing.T) {
	store := &memStore{}
	b := New(store, 7)
	ctx := context.Background()

	_, err := b.Trip(ctx, "quota")
	require.NoError(t, err)
	require.NoError(t, b.Reset(ctx))

	open, err := b.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
	assert.Nil(t, store.state.DisabledUntil)
}

func TestBreaker_ReadErrorPropagates(t *testing.T) {
	store := &memStore{readErr: errors.New("disk gone")}
	_, err := New(store, 7).IsOpen(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk gone")
}

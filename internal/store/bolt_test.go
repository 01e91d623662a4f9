package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "ussd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTrackAndLatest(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.Latest("sess-1")
	require.NoError(t, err)
	require.Empty(t, latest)

	require.NoError(t, s.Track("sess-1", "+254700000001", "home"))
	require.NoError(t, s.Track("sess-1", "+254700000001", "register"))
	require.NoError(t, s.Track("sess-1", "+254700000001", "register"))

	latest, err = s.Latest("sess-1")
	require.NoError(t, err)
	require.Equal(t, "register", latest)

	other, err := s.Latest("sess-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestPrevious(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Previous("sess-1")
	require.ErrorIs(t, err, ErrNoPreviousMenu)

	require.NoError(t, s.Track("sess-1", "+254700000001", "home"))
	_, err = s.Previous("sess-1")
	require.ErrorIs(t, err, ErrNoPreviousMenu)

	require.NoError(t, s.Track("sess-1", "+254700000001", "a"))
	require.NoError(t, s.Track("sess-1", "+254700000001", "b"))

	prev, err := s.Previous("sess-1")
	require.NoError(t, err)
	require.Equal(t, "a", prev)

	prev, err = s.Previous("sess-1")
	require.NoError(t, err)
	require.Equal(t, "home", prev)

	latest, err := s.Latest("sess-1")
	require.NoError(t, err)
	require.Equal(t, "home", latest)
}

func TestTrackCapsTrail(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < maxMenusServed+10; i++ {
		menu := "even"
		if i%2 == 1 {
			menu = "odd"
		}
		require.NoError(t, s.Track("sess-1", "", menu))
	}

	n := 0
	for {
		if _, err := s.Previous("sess-1"); err != nil {
			require.ErrorIs(t, err, ErrNoPreviousMenu)
			break
		}
		n++
	}
	require.Equal(t, maxMenusServed-1, n)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Track("sess-1", "", "home"))
	require.NoError(t, s.Clear("sess-1"))

	latest, err := s.Latest("sess-1")
	require.NoError(t, err)
	require.Empty(t, latest)

	require.NoError(t, s.Clear("missing"))
}

func TestCleanup(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, s.Track("old", "", "home"))

	s.now = func() time.Time { return now }
	require.NoError(t, s.Track("fresh", "", "home"))

	removed, err := s.Cleanup(10 * time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	latest, err := s.Latest("old")
	require.NoError(t, err)
	require.Empty(t, latest)

	latest, err = s.Latest("fresh")
	require.NoError(t, err)
	require.Equal(t, "home", latest)
}

func TestRememberAndReplay(t *testing.T) {
	s := newTestStore(t)

	reply, err := s.Replay("sess-1", "1")
	require.NoError(t, err)
	require.Nil(t, reply)

	require.NoError(t, s.Track("sess-1", "+254700000001", "home"))
	require.NoError(t, s.Remember("sess-1", "+254700000001", "1", Reply{Text: "Enter your name"}))

	reply, err = s.Replay("sess-1", "1")
	require.NoError(t, err)
	require.Equal(t, &Reply{Text: "Enter your name"}, reply)

	reply, err = s.Replay("sess-1", "1*Jane")
	require.NoError(t, err)
	require.Nil(t, reply)

	// The trail is untouched by remembering a reply.
	latest, err := s.Latest("sess-1")
	require.NoError(t, err)
	require.Equal(t, "home", latest)

	require.NoError(t, s.Remember("sess-1", "+254700000001", "1*Jane", Reply{Text: "Done", End: true}))
	reply, err = s.Replay("sess-1", "1")
	require.NoError(t, err)
	require.Nil(t, reply)

	require.NoError(t, s.Clear("sess-1"))
	reply, err = s.Replay("sess-1", "1*Jane")
	require.NoError(t, err)
	require.Nil(t, reply)
}

package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectrum/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func backdate(t *testing.T, s *Store, roomID string, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(-age).UnixMilli()
	_, err := s.db.Exec("UPDATE rooms SET last_activity = ? WHERE room_id = ?", ts, roomID)
	require.NoError(t, err)
}

func TestCreateRoomDuplicate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateRoom("ABC123", model.ModeClassic))
	err := s.CreateRoom("ABC123", model.ModeClassic)
	assert.ErrorIs(t, err, model.ErrRoomExists)
}

func TestGetRoom(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRoom("NOPE00")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	require.NoError(t, s.CreateRoom("ABC123", model.ModeClassic))
	rec, err := s.GetRoom("ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", rec.RoomID)
	assert.Equal(t, model.ModeClassic, rec.Mode)
	assert.True(t, rec.IsActive)
	assert.Greater(t, rec.CreatedAt, int64(0))
}

func TestGameStateRoundtrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRoom("ABC123", model.ModeClassic))

	_, err := s.GetGameState("ABC123")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	state := []byte(`{"phase":"give_clue","leftScore":1}`)
	require.NoError(t, s.SaveGameState("ABC123", state))

	got, err := s.GetGameState("ABC123")
	require.NoError(t, err)
	assert.JSONEq(t, string(state), string(got))

	// Upsert replaces the previous snapshot.
	state2 := []byte(`{"phase":"make_guess","leftScore":1}`)
	require.NoError(t, s.SaveGameState("ABC123", state2))
	got, err = s.GetGameState("ABC123")
	require.NoError(t, err)
	assert.JSONEq(t, string(state2), string(got))
}

func TestSaveGameStateBumpsActivity(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRoom("ABC123", model.ModeClassic))
	backdate(t, s, "ABC123", time.Hour)

	before, err := s.GetRoom("ABC123")
	require.NoError(t, err)

	require.NoError(t, s.SaveGameState("ABC123", []byte(`{}`)))

	after, err := s.GetRoom("ABC123")
	require.NoError(t, err)
	assert.Greater(t, after.LastActivity, before.LastActivity)
}

func TestListActiveRooms(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRoom("AAAAAA", model.ModeClassic))
	require.NoError(t, s.CreateRoom("BBBBBB", model.ModeClassic))
	require.NoError(t, s.MarkInactive("BBBBBB"))

	records, err := s.ListActiveRooms()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AAAAAA", records[0].RoomID)
}

func TestPurgeInactive(t *testing.T) {
	s := newTestStore(t)

	// Abandoned 25 hours ago: past the retention window.
	require.NoError(t, s.CreateRoom("OLD111", model.ModeClassic))
	require.NoError(t, s.SaveGameState("OLD111", []byte(`{"phase":"view_score"}`)))
	s.LogEvent("OLD111", "room_created", map[string]any{"mode": "classic"})
	require.NoError(t, s.MarkInactive("OLD111"))
	backdate(t, s, "OLD111", 25*time.Hour)

	// Inactive but only one hour old: retained.
	require.NoError(t, s.CreateRoom("NEW222", model.ModeClassic))
	require.NoError(t, s.MarkInactive("NEW222"))
	backdate(t, s, "NEW222", time.Hour)

	// Still active: never purged regardless of age.
	require.NoError(t, s.CreateRoom("LIVE33", model.ModeClassic))
	backdate(t, s, "LIVE33", 48*time.Hour)

	n, err := s.PurgeInactive(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetRoom("OLD111")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	_, err = s.GetRoom("NEW222")
	assert.NoError(t, err)
	_, err = s.GetRoom("LIVE33")
	assert.NoError(t, err)

	// Cascading delete took the snapshot and event rows with the room.
	var stateRows, eventRows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM game_states WHERE room_id = ?", "OLD111").Scan(&stateRows))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM session_history WHERE room_id = ?", "OLD111").Scan(&eventRows))
	assert.Zero(t, stateRows)
	assert.Zero(t, eventRows)
}

func TestLogEvent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRoom("ABC123", model.ModeClassic))

	s.LogEvent("ABC123", "player_joined", map[string]any{"playerId": "p1"})
	s.LogEvent("ABC123", "player_disconnected", nil)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM session_history WHERE room_id = ?", "ABC123").Scan(&count))
	assert.Equal(t, 2, count)
}

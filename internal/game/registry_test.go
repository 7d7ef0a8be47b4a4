package game

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectrum/internal/database"
	"spectrum/internal/model"
)

func newTestRegistry(t *testing.T, gracePeriod time.Duration) (*Registry, *database.Store) {
	t.Helper()
	store, err := database.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return NewRegistry(store, gracePeriod), store
}

func TestCreateRoomDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)

	room, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", room.ID)
	assert.True(t, room.IsActive)

	_, err = reg.CreateRoom("ABC123", model.ModeClassic)
	assert.ErrorIs(t, err, model.ErrRoomExists)

	got, ok := reg.GetRoom("ABC123")
	require.True(t, ok)
	assert.Same(t, room, got)
}

func TestAddPlayerReconnection(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)
	_, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)

	p, err := reg.AddPlayer("ABC123", "p1", "Alice", "conn-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.True(t, p.IsConnected)

	// Same player id on a new connection is a reconnect, not a new roster entry.
	again, err := reg.AddPlayer("ABC123", "p1", "", "conn-2", nil)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, "conn-2", again.ConnID)
	assert.Equal(t, "Alice", again.Name, "empty name keeps the existing one")

	players := reg.Players("ABC123")
	require.Len(t, players, 1)
	assert.Equal(t, "p1", players[0].ID)
}

func TestAddPlayerNameIsTrimmedAndCapped(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)
	_, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)

	long := "  " + strings.Repeat("x", 40) + "  "
	p, err := reg.AddPlayer("ABC123", "p1", long, "conn-1", nil)
	require.NoError(t, err)
	assert.Len(t, []rune(p.Name), maxPlayerNameLen)

	_, err = reg.AddPlayer("NOPE00", "p2", "Bob", "conn-2", nil)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestRemoveConnectionGracePeriod(t *testing.T) {
	reg, store := newTestRegistry(t, 30*time.Millisecond)
	room, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)
	_, err = reg.AddPlayer("ABC123", "p1", "Alice", "conn-1", nil)
	require.NoError(t, err)

	playerID := reg.RemoveConnection("ABC123", "conn-1")
	assert.Equal(t, "p1", playerID)

	room.Mutex.Lock()
	assert.False(t, room.Players["p1"].IsConnected)
	room.Mutex.Unlock()

	// After the grace period the room goes inactive in memory and in the store.
	require.Eventually(t, func() bool {
		room.Mutex.Lock()
		inactive := !room.IsActive
		room.Mutex.Unlock()
		if !inactive {
			return false
		}
		rec, err := store.GetRoom("ABC123")
		return err == nil && !rec.IsActive
	}, time.Second, 10*time.Millisecond)
}

func TestRemoveConnectionReconnectCancelsDeactivation(t *testing.T) {
	reg, store := newTestRegistry(t, 50*time.Millisecond)
	room, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)
	_, err = reg.AddPlayer("ABC123", "p1", "Alice", "conn-1", nil)
	require.NoError(t, err)

	reg.RemoveConnection("ABC123", "conn-1")
	_, err = reg.AddPlayer("ABC123", "p1", "", "conn-2", nil)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	room.Mutex.Lock()
	assert.True(t, room.IsActive, "reconnect within the grace period keeps the room alive")
	room.Mutex.Unlock()
	rec, err := store.GetRoom("ABC123")
	require.NoError(t, err)
	assert.True(t, rec.IsActive)
}

func TestRemoveConnectionUnknown(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)
	_, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)

	assert.Empty(t, reg.RemoveConnection("ABC123", "no-such-conn"))
	assert.Empty(t, reg.RemoveConnection("NOPE00", "conn-1"))
}

func TestApplyStateUpdatePersistsAcrossRestart(t *testing.T) {
	store, err := database.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	reg := NewRegistry(store, time.Minute)
	room, err := reg.CreateRoom("ABC123", model.ModeClassic)
	require.NoError(t, err)
	_, err = reg.AddPlayer("ABC123", "p1", "Alice", "conn-1", nil)
	require.NoError(t, err)
	_, err = reg.AddPlayer("ABC123", "p2", "Bob", "conn-2", nil)
	require.NoError(t, err)

	InitializeGame(room)
	JoinTeam(room, "p1", model.TeamLeft)
	JoinTeam(room, "p2", model.TeamRight)
	require.NoError(t, StartGame(room, "p1", "food"))
	require.NoError(t, SubmitClue(room, "p1", "Pizza"))

	snap, err := reg.ApplyStateUpdate("ABC123", StateUpdate{
		GameState: room.GameState,
		Teams:     room.Teams,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseMakeGuess, snap.GameState.Phase)
	assert.Len(t, snap.Players, 2)

	// A fresh registry on the same store sees the full room.
	reg2 := NewRegistry(store, time.Minute)
	require.NoError(t, reg2.Load())

	restored, ok := reg2.GetRoom("ABC123")
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, restored.Order)
	assert.Equal(t, "Alice", restored.Players["p1"].Name)
	assert.False(t, restored.Players["p1"].IsConnected, "nobody is connected after a restart")
	assert.Equal(t, model.TeamLeft, restored.Teams["p1"])
	assert.Equal(t, model.TeamRight, restored.Teams["p2"])
	require.NotNil(t, restored.GameState)
	assert.Equal(t, model.PhaseMakeGuess, restored.GameState.Phase)
	assert.Equal(t, "Pizza", restored.GameState.Clue)
	assert.Equal(t, room.GameState.DeckSeed, restored.GameState.DeckSeed)
}

func TestApplyStateUpdateUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)
	_, err := reg.ApplyStateUpdate("NOPE00", StateUpdate{GameState: &model.GameState{}})
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestLoadRoomWithoutSnapshot(t *testing.T) {
	store, err := database.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.CreateRoom("EMPTY1", model.ModeClassic))

	reg := NewRegistry(store, time.Minute)
	require.NoError(t, reg.Load())

	room, ok := reg.GetRoom("EMPTY1")
	require.True(t, ok)
	assert.Empty(t, room.Players)
	assert.Nil(t, room.GameState)
}

func TestCleanupInactiveEvictsStaleRooms(t *testing.T) {
	reg, _ := newTestRegistry(t, time.Minute)
	room, err := reg.CreateRoom("OLD111", model.ModeClassic)
	require.NoError(t, err)
	_, err = reg.CreateRoom("NEW222", model.ModeClassic)
	require.NoError(t, err)

	room.Mutex.Lock()
	room.LastActivityAt = time.Now().Add(-25 * time.Hour)
	room.Mutex.Unlock()

	_, err = reg.CleanupInactive(24 * time.Hour)
	require.NoError(t, err)

	_, ok := reg.GetRoom("OLD111")
	assert.False(t, ok, "stale disconnected room evicted from cache")
	_, ok = reg.GetRoom("NEW222")
	assert.True(t, ok)
}

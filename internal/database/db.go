package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"spectrum/internal/model"
)

// Store is the durable backing for rooms, game-state snapshots and the
// append-only event log. All timestamps are stored as Unix milliseconds.
type Store struct {
	db *sql.DB
}

// RoomRecord is one row of the rooms table.
type RoomRecord struct {
	RoomID       string
	Mode         model.GameMode
	CreatedAt    int64
	LastActivity int64
	IsActive     bool
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is empty", model.ErrStorage)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: ensure db directory: %v", model.ErrStorage, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", model.ErrStorage, err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_activity INTEGER NOT NULL,
			is_active INTEGER DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS game_states (
			room_id TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS session_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data TEXT,
			timestamp INTEGER NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_active ON rooms(is_active, last_activity);`,
		`CREATE INDEX IF NOT EXISTS idx_history_room ON session_history(room_id, timestamp);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: init schema: %v", model.ErrStorage, err)
		}
	}
	return nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// CreateRoom inserts a new room record. A duplicate room id is reported as
// model.ErrRoomExists, not a storage failure.
func (s *Store) CreateRoom(roomID string, mode model.GameMode) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(
		"INSERT INTO rooms (room_id, mode, created_at, last_activity) VALUES (?, ?, ?, ?)",
		roomID, string(mode), now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return model.ErrRoomExists
		}
		return fmt.Errorf("%w: create room %s: %v", model.ErrStorage, roomID, err)
	}
	return nil
}

func (s *Store) GetRoom(roomID string) (*RoomRecord, error) {
	var rec RoomRecord
	var mode string
	var active int
	err := s.db.QueryRow(
		"SELECT room_id, mode, created_at, last_activity, is_active FROM rooms WHERE room_id = ?",
		roomID,
	).Scan(&rec.RoomID, &mode, &rec.CreatedAt, &rec.LastActivity, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get room %s: %v", model.ErrStorage, roomID, err)
	}
	rec.Mode = model.GameMode(mode)
	rec.IsActive = active != 0
	return &rec, nil
}

// SaveGameState upserts the serialized snapshot and bumps the room's
// last-activity timestamp.
func (s *Store) SaveGameState(roomID string, stateJSON []byte) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO game_states (room_id, state_json, updated_at) VALUES (?, ?, ?)",
		roomID, string(stateJSON), now,
	)
	if err != nil {
		return fmt.Errorf("%w: save state for %s: %v", model.ErrStorage, roomID, err)
	}
	if _, err := s.db.Exec("UPDATE rooms SET last_activity = ? WHERE room_id = ?", now, roomID); err != nil {
		return fmt.Errorf("%w: touch room %s: %v", model.ErrStorage, roomID, err)
	}
	return nil
}

func (s *Store) GetGameState(roomID string) ([]byte, error) {
	var stateJSON string
	err := s.db.QueryRow("SELECT state_json FROM game_states WHERE room_id = ?", roomID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get state for %s: %v", model.ErrStorage, roomID, err)
	}
	return []byte(stateJSON), nil
}

// LogEvent appends an audit entry. It is fire-and-forget: failures are logged
// and never surface to the caller.
func (s *Store) LogEvent(roomID, eventType string, payload any) {
	var data sql.NullString
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Warn().Err(err).Str("room", roomID).Str("event", eventType).Msg("drop event log entry")
			return
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO session_history (room_id, event_type, event_data, timestamp) VALUES (?, ?, ?, ?)",
		roomID, eventType, data, time.Now().UnixMilli(),
	)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Str("event", eventType).Msg("write event log entry")
	}
}

func (s *Store) MarkInactive(roomID string) error {
	if _, err := s.db.Exec("UPDATE rooms SET is_active = 0 WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("%w: mark %s inactive: %v", model.ErrStorage, roomID, err)
	}
	return nil
}

func (s *Store) ListActiveRooms() ([]RoomRecord, error) {
	rows, err := s.db.Query(
		"SELECT room_id, mode, created_at, last_activity, is_active FROM rooms WHERE is_active = 1",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list active rooms: %v", model.ErrStorage, err)
	}
	defer rows.Close()

	records := make([]RoomRecord, 0)
	for rows.Next() {
		var rec RoomRecord
		var mode string
		var active int
		if err := rows.Scan(&rec.RoomID, &mode, &rec.CreatedAt, &rec.LastActivity, &active); err != nil {
			return nil, fmt.Errorf("%w: scan room record: %v", model.ErrStorage, err)
		}
		rec.Mode = model.GameMode(mode)
		rec.IsActive = active != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list active rooms: %v", model.ErrStorage, err)
	}
	return records, nil
}

// PurgeInactive deletes rooms that were marked inactive before the cutoff.
// Snapshot and event-log rows go with them via cascading delete.
func (s *Store) PurgeInactive(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.Exec("DELETE FROM rooms WHERE is_active = 0 AND last_activity < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge inactive rooms: %v", model.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: purge inactive rooms: %v", model.ErrStorage, err)
	}
	return n, nil
}

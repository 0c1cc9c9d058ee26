package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/input/key"
)

// Journal errors
var (
	ErrSessionNotFound = errors.New("journal: session not found")
	ErrSessionEnded    = errors.New("journal: session ended")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    keymap      TEXT NOT NULL,
    started_at  INTEGER NOT NULL,
    ended_at    INTEGER
);

CREATE TABLE IF NOT EXISTS events (
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    ordinal     INTEGER NOT NULL,
    pos         TEXT NOT NULL,
    pressed     INTEGER NOT NULL,
    at_ms       INTEGER NOT NULL,
    PRIMARY KEY (session_id, ordinal)
);

CREATE TABLE IF NOT EXISTS actions (
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    ordinal     INTEGER NOT NULL,
    pos         TEXT NOT NULL,
    action      TEXT NOT NULL,
    pressed     INTEGER NOT NULL,
    tap_count   INTEGER NOT NULL,
    at_ms       INTEGER NOT NULL,
    PRIMARY KEY (session_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_actions_pos ON actions(session_id, pos);
`

// Journal is an open journal database.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		dsn = path + "?_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db, log: log.With().Str("component", "journal").Logger()}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Begin starts a new session for the named keymap.
func (j *Journal) Begin(keymapName string) (*Session, error) {
	id := uuid.New()
	started := time.Now()
	if _, err := j.db.Exec(`INSERT INTO sessions (id, keymap, started_at) VALUES (?, ?, ?)`,
		id.String(), keymapName, started.UnixNano()); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	j.log.Info().Str("session", id.String()).Str("keymap", keymapName).Msg("session started")
	return &Session{j: j, id: id, started: started}, nil
}

// SessionInfo describes a stored session.
type SessionInfo struct {
	ID      uuid.UUID
	Keymap  string
	Started time.Time
	Ended   time.Time // zero while open
	Events  int
	Actions int
}

// Sessions lists stored sessions, newest first.
func (j *Journal) Sessions() ([]SessionInfo, error) {
	rows, err := j.db.Query(`
		SELECT s.id, s.keymap, s.started_at, s.ended_at,
		       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id),
		       (SELECT COUNT(*) FROM actions a WHERE a.session_id = s.id)
		FROM sessions s ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			id      string
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&id, &info.Keymap, &started, &ended, &info.Events, &info.Actions); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		info.Started = time.Unix(0, started)
		if ended.Valid {
			info.Ended = time.Unix(0, ended.Int64)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Resolve finds a session by full id or unique prefix.
func (j *Journal) Resolve(prefix string) (uuid.UUID, error) {
	rows, err := j.db.Query(`SELECT id FROM sessions WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve session: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, err
	}
	switch len(ids) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: %s", ErrSessionNotFound, prefix)
	case 1:
		return uuid.Parse(ids[0])
	default:
		return uuid.Nil, fmt.Errorf("journal: session prefix %q is ambiguous", prefix)
	}
}

// Events returns the raw events of a session in arrival order.
func (j *Journal) Events(id uuid.UUID) (*key.Sequence, error) {
	if err := j.exists(id); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`SELECT pos, pressed, at_ms FROM events WHERE session_id = ? ORDER BY ordinal`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	seq := key.NewSequence()
	for rows.Next() {
		var (
			pos     string
			pressed bool
			at      int64
		)
		if err := rows.Scan(&pos, &pressed, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		p, err := key.ParsePosition(pos)
		if err != nil {
			return nil, fmt.Errorf("stored event: %w", err)
		}
		seq.Add(key.Event{Pos: p, Pressed: pressed, Time: time.Duration(at) * time.Millisecond})
	}
	return seq, rows.Err()
}

// KeyStat summarises one position over a session.
type KeyStat struct {
	Pos      key.Position
	Presses  int
	Taps     int
	Holds    int
	MultiTap int // presses carrying a tap count above one
	MeanDown time.Duration
	MaxDown  time.Duration
}

// Stats returns per-position statistics for a session, sorted by position.
func (j *Journal) Stats(id uuid.UUID) ([]KeyStat, error) {
	seq, err := j.Events(id)
	if err != nil {
		return nil, err
	}

	stats := make(map[key.Position]*KeyStat)
	get := func(p key.Position) *KeyStat {
		s, ok := stats[p]
		if !ok {
			s = &KeyStat{Pos: p}
			stats[p] = s
		}
		return s
	}

	down := make(map[key.Position]time.Duration)
	total := make(map[key.Position]time.Duration)
	released := make(map[key.Position]int)
	for _, ev := range seq.Events {
		s := get(ev.Pos)
		if ev.Pressed {
			s.Presses++
			down[ev.Pos] = ev.Time
			continue
		}
		at, ok := down[ev.Pos]
		if !ok {
			continue
		}
		delete(down, ev.Pos)
		d := ev.Time - at
		total[ev.Pos] += d
		released[ev.Pos]++
		if d > s.MaxDown {
			s.MaxDown = d
		}
	}

	rows, err := j.db.Query(`
		SELECT pos,
		       SUM(CASE WHEN tap_count > 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN tap_count = 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN tap_count > 1 THEN 1 ELSE 0 END)
		FROM actions WHERE session_id = ? AND pressed = 1
		GROUP BY pos`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos                  string
			taps, holds, repeats int
		)
		if err := rows.Scan(&pos, &taps, &holds, &repeats); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		p, err := key.ParsePosition(pos)
		if err != nil {
			return nil, fmt.Errorf("stored action: %w", err)
		}
		s := get(p)
		s.Taps, s.Holds, s.MultiTap = taps, holds, repeats
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]KeyStat, 0, len(stats))
	for p, s := range stats {
		if n := released[p]; n > 0 {
			s.MeanDown = total[p] / time.Duration(n)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Pos.Row != out[b].Pos.Row {
			return out[a].Pos.Row < out[b].Pos.Row
		}
		return out[a].Pos.Col < out[b].Pos.Col
	})
	return out, nil
}

func (j *Journal) exists(id uuid.UUID) error {
	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Session appends events and actions to one journal session. It
// implements dispatcher.Sink.
type Session struct {
	j       *Journal
	id      uuid.UUID
	started time.Time

	mu       sync.Mutex
	events   int
	actions  int
	ended    bool
	failures int
	lastErr  error
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// RecordEvent appends a raw event.
func (s *Session) RecordEvent(ev key.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrSessionEnded
	}
	_, err := s.j.db.Exec(`INSERT INTO events (session_id, ordinal, pos, pressed, at_ms) VALUES (?, ?, ?, ?, ?)`,
		s.id.String(), s.events, ev.Pos.String(), ev.Pressed, ev.Time.Milliseconds())
	if err != nil {
		return s.fail(fmt.Errorf("record event: %w", err))
	}
	s.events++
	return nil
}

// Emit appends a resolved action. Failures are counted and logged, see Err.
func (s *Session) Emit(r dispatcher.Resolved) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	_, err := s.j.db.Exec(`INSERT INTO actions (session_id, ordinal, pos, action, pressed, tap_count, at_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.id.String(), s.actions, r.Pos.String(), r.Action.String(), r.Pressed, r.TapCount, r.Time.Milliseconds())
	if err != nil {
		_ = s.fail(fmt.Errorf("record action: %w", err))
		return
	}
	s.actions++
}

func (s *Session) fail(err error) error {
	s.failures++
	s.lastErr = err
	s.j.log.Warn().Err(err).Str("session", s.id.String()).Msg("journal write failed")
	return err
}

// Err returns the last write error and the failure count.
func (s *Session) Err() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures, s.lastErr
}

// End closes the session. Further writes are rejected.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil
	}
	s.ended = true
	if _, err := s.j.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, time.Now().UnixNano(), s.id.String()); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	s.j.log.Info().Str("session", s.id.String()).
		Int("events", s.events).Int("actions", s.actions).
		Dur("duration", time.Since(s.started)).Msg("session ended")
	return nil
}

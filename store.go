package memento

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection for memory persistence. Generalized from
// the teacher's Store (one table, int64 ids) to the full spec.md §3 entity
// set with string ids throughout.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database and runs migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("memento: mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("memento: open db: %w", err)
	}

	// Single connection avoids write contention at our scale; the keyLock
	// above it serializes logically-conflicting ops, not physical access.
	db.SetMaxOpenConns(1)
	db.Exec(`PRAGMA foreign_keys = ON;`)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("memento: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = "2006-01-02 15:04:05.999999999"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func jsonDecode[T any](s string, into *T) {
	if s == "" {
		return
	}
	json.Unmarshal([]byte(s), into)
}

// --- memories ---

const memorySelectCols = `id, user_id, created_at, text, normalized_text, features_json,
	salience, salience_factors, security_tier, has_envelope, forgotten_state,
	forgotten_at, forgotten_reason, project_tag, added_tags, added_topics,
	extraction_status, last_voted_at, pending_vector_sync`

func scanMemory(row interface {
	Scan(dest ...any) error
}) (Memory, error) {
	var m Memory
	var createdAt, forgottenAt, lastVotedAt sql.NullString
	var featuresJSON, factorsJSON, addedTagsJSON, addedTopicsJSON string
	var securityTier, forgottenState string
	var hasEnvelope, pendingSync int

	if err := row.Scan(
		&m.ID, &m.User, &createdAt, &m.Text, &m.NormalizedText, &featuresJSON,
		&m.Salience, &factorsJSON, &securityTier, &hasEnvelope, &forgottenState,
		&forgottenAt, &m.ForgottenReason, &m.ProjectTag, &addedTagsJSON, &addedTopicsJSON,
		&m.ExtractionStatus, &lastVotedAt, &pendingSync,
	); err != nil {
		return m, err
	}

	m.CreatedAt = parseTime(createdAt.String)
	m.ForgottenAt = parseTimePtr(forgottenAt)
	m.LastVotedAt = parseTimePtr(lastVotedAt)
	m.SecurityTier = Tier(securityTier)
	m.ForgottenState = ForgottenState(forgottenState)
	m.HasEnvelope = hasEnvelope != 0
	m.PendingVectorSync = pendingSync != 0
	jsonDecode(featuresJSON, &m.Features)
	jsonDecode(factorsJSON, &m.SalienceFactors)
	jsonDecode(addedTagsJSON, &m.AddedTags)
	jsonDecode(addedTopicsJSON, &m.AddedTopics)
	return m, nil
}

// InsertMemory inserts a new memory. Returns a conflict error if the id
// already exists (spec.md §4.1 DuplicateId). Also populates memory_people,
// the normalized join table FindMemories' person filter queries against.
func (s *Store) InsertMemory(m Memory) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errInternal("store.InsertMemory", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO memories (id, user_id, created_at, text, normalized_text, features_json,
			salience, salience_factors, security_tier, has_envelope, forgotten_state,
			forgotten_at, forgotten_reason, project_tag, added_tags, added_topics,
			extraction_status, last_voted_at, pending_vector_sync)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.User, fmtTime(m.CreatedAt), m.Text, m.NormalizedText, jsonEncode(m.Features),
		m.Salience, jsonEncode(m.SalienceFactors), string(m.SecurityTier), boolToInt(m.HasEnvelope), string(m.ForgottenState),
		fmtTimePtr(m.ForgottenAt), m.ForgottenReason, m.ProjectTag, jsonEncode(m.AddedTags), jsonEncode(m.AddedTopics),
		m.ExtractionStatus, fmtTimePtr(m.LastVotedAt), boolToInt(m.PendingVectorSync),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict("store.InsertMemory", "memory id already exists")
		}
		return errInternal("store.InsertMemory", err)
	}

	for _, person := range m.Features.People {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO memory_people (memory_id, user_id, person) VALUES (?,?,?)`,
			m.ID, m.User, person,
		); err != nil {
			return errInternal("store.InsertMemory", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errInternal("store.InsertMemory", err)
	}
	return nil
}

func (s *Store) GetMemory(id string) (Memory, error) {
	row := s.db.QueryRow(`SELECT `+memorySelectCols+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return m, errNotFound("store.GetMemory", "memory not found")
	}
	if err != nil {
		return m, errInternal("store.GetMemory", err)
	}
	return m, nil
}

// MemoryFilter narrows FindMemories; zero values are not applied.
type MemoryFilter struct {
	User            string
	Tier            Tier
	ForgottenStates []ForgottenState // empty means StateActive only
	ProjectTag      string
	Person          string
	Since           *time.Time
	Limit           int
}

// FindMemories returns memories matching filter, newest first.
func (s *Store) FindMemories(f MemoryFilter) ([]Memory, error) {
	q := `SELECT ` + memorySelectCols + ` FROM memories WHERE user_id = ?`
	args := []any{f.User}

	states := f.ForgottenStates
	if len(states) == 0 {
		states = []ForgottenState{StateActive}
	}
	q += ` AND forgotten_state IN (`
	for i, st := range states {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, string(st))
	}
	q += ")"

	if f.Tier != "" {
		q += " AND security_tier = ?"
		args = append(args, string(f.Tier))
	}
	if f.ProjectTag != "" {
		q += " AND project_tag = ?"
		args = append(args, f.ProjectTag)
	}
	if f.Person != "" {
		q += ` AND id IN (SELECT memory_id FROM memory_people WHERE user_id = ? AND person = ?)`
		args = append(args, f.User, f.Person)
	}
	if f.Since != nil {
		q += " AND created_at >= ?"
		args = append(args, fmtTime(*f.Since))
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errInternal("store.FindMemories", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errInternal("store.FindMemories", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMemoryState is the narrow update forget()/reassociate() need: state,
// reason, tags, topics, project tag, vote timestamp, and pending-sync flag.
func (s *Store) UpdateMemoryState(m Memory) error {
	_, err := s.db.Exec(`
		UPDATE memories SET forgotten_state=?, forgotten_at=?, forgotten_reason=?,
			project_tag=?, added_tags=?, added_topics=?, salience=?, salience_factors=?,
			last_voted_at=?, pending_vector_sync=?
		WHERE id = ?`,
		string(m.ForgottenState), fmtTimePtr(m.ForgottenAt), m.ForgottenReason,
		m.ProjectTag, jsonEncode(m.AddedTags), jsonEncode(m.AddedTopics), m.Salience, jsonEncode(m.SalienceFactors),
		fmtTimePtr(m.LastVotedAt), boolToInt(m.PendingVectorSync),
		m.ID,
	)
	if err != nil {
		return errInternal("store.UpdateMemoryState", err)
	}
	return nil
}

// HardDeleteMemory removes a memory row permanently (forget_worker sweep).
func (s *Store) HardDeleteMemory(id string) error {
	_, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return errInternal("store.HardDeleteMemory", err)
	}
	return nil
}

// PendingDeleteMemories returns memories whose forgottenAt is older than cutoff
// and which are still in pending_delete state (forget_worker sweep input).
func (s *Store) PendingDeleteMemories(cutoff time.Time) ([]Memory, error) {
	rows, err := s.db.Query(`SELECT `+memorySelectCols+` FROM memories
		WHERE forgotten_state = ? AND forgotten_at IS NOT NULL AND forgotten_at <= ?`,
		string(StatePendingDelete), fmtTime(cutoff))
	if err != nil {
		return nil, errInternal("store.PendingDeleteMemories", err)
	}
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errInternal("store.PendingDeleteMemories", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PendingVectorSyncMemories returns memories flagged for retry (retryqueue.go).
func (s *Store) PendingVectorSyncMemories(user string, limit int) ([]Memory, error) {
	rows, err := s.db.Query(`SELECT `+memorySelectCols+` FROM memories
		WHERE pending_vector_sync = 1 AND (? = '' OR user_id = ?) LIMIT ?`,
		user, user, limit)
	if err != nil {
		return nil, errInternal("store.PendingVectorSyncMemories", err)
	}
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errInternal("store.PendingVectorSyncMemories", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

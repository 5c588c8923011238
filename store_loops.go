package memento

import (
	"database/sql"
	"time"
)

// --- open loops ---

const loopSelectCols = `id, user_id, description, owner, other_party, due_date,
	loop_type, source_memory_id, created_at, closed_at, closed_note`

func scanLoop(row interface{ Scan(dest ...any) error }) (OpenLoop, error) {
	var l OpenLoop
	var owner string
	var dueDate, closedAt sql.NullString
	var createdAt string
	if err := row.Scan(
		&l.ID, &l.User, &l.Description, &owner, &l.OtherParty, &dueDate,
		&l.LoopType, &l.SourceMemoryID, &createdAt, &closedAt, &l.ClosedNote,
	); err != nil {
		return l, err
	}
	l.Owner = LoopOwner(owner)
	l.CreatedAt = parseTime(createdAt)
	if dueDate.Valid && dueDate.String != "" {
		t := parseTime(dueDate.String)
		l.DueDate = &t
	}
	l.ClosedAt = parseTimePtr(closedAt)
	return l, nil
}

// CreateLoop inserts an open loop. Idempotent on (sourceMemoryID, description)
// when sourceMemoryID is non-empty: a second call for the same memory and
// text returns the existing id instead of duplicating (spec.md §4.1).
func (s *Store) CreateLoop(l OpenLoop) (OpenLoop, error) {
	if l.SourceMemoryID != "" {
		row := s.db.QueryRow(`SELECT `+loopSelectCols+` FROM open_loops
			WHERE source_memory_id = ? AND description = ? LIMIT 1`,
			l.SourceMemoryID, l.Description)
		if existing, err := scanLoop(row); err == nil {
			return existing, nil
		}
	}
	_, err := s.db.Exec(`INSERT INTO open_loops (id, user_id, description, owner, other_party,
		due_date, loop_type, source_memory_id, created_at, closed_at, closed_note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.User, l.Description, string(l.Owner), l.OtherParty,
		fmtTimePtr(l.DueDate), l.LoopType, l.SourceMemoryID, fmtTime(l.CreatedAt),
		fmtTimePtr(l.ClosedAt), l.ClosedNote,
	)
	if err != nil {
		return l, errInternal("store.CreateLoop", err)
	}
	return l, nil
}

func (s *Store) GetLoop(id string) (OpenLoop, error) {
	row := s.db.QueryRow(`SELECT `+loopSelectCols+` FROM open_loops WHERE id = ?`, id)
	l, err := scanLoop(row)
	if err == sql.ErrNoRows {
		return l, errNotFound("store.GetLoop", "loop not found")
	}
	if err != nil {
		return l, errInternal("store.GetLoop", err)
	}
	return l, nil
}

// CloseLoop marks a loop resolved. Idempotent: closing an already-closed
// loop is a no-op returning the existing row, not an error (spec.md §4.1).
func (s *Store) CloseLoop(id string, closedAt time.Time, note string) (OpenLoop, error) {
	l, err := s.GetLoop(id)
	if err != nil {
		return l, err
	}
	if l.ClosedAt != nil {
		return l, nil
	}
	_, err = s.db.Exec(`UPDATE open_loops SET closed_at = ?, closed_note = ? WHERE id = ?`,
		fmtTime(closedAt), note, id)
	if err != nil {
		return l, errInternal("store.CloseLoop", err)
	}
	l.ClosedAt = &closedAt
	l.ClosedNote = note
	return l, nil
}

// OpenLoopsForUser returns unclosed loops, optionally narrowed to otherParty.
func (s *Store) OpenLoopsForUser(user, otherParty string) ([]OpenLoop, error) {
	q := `SELECT ` + loopSelectCols + ` FROM open_loops WHERE user_id = ? AND closed_at IS NULL`
	args := []any{user}
	if otherParty != "" {
		q += " AND other_party = ?"
		args = append(args, otherParty)
	}
	q += " ORDER BY created_at ASC"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errInternal("store.OpenLoopsForUser", err)
	}
	defer rows.Close()
	var out []OpenLoop
	for rows.Next() {
		l, err := scanLoop(rows)
		if err != nil {
			return nil, errInternal("store.OpenLoopsForUser", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CloseLoopsForSource closes every open loop sourced from a memory, used by
// cascadeForget when a memory is suppressed or archived.
func (s *Store) CloseLoopsForSource(sourceMemoryID string, closedAt time.Time, note string) error {
	_, err := s.db.Exec(`UPDATE open_loops SET closed_at = ?, closed_note = ?
		WHERE source_memory_id = ? AND closed_at IS NULL`,
		fmtTime(closedAt), note, sourceMemoryID)
	if err != nil {
		return errInternal("store.CloseLoopsForSource", err)
	}
	return nil
}

// --- timeline events ---

const eventSelectCols = `id, user_id, description, person, event_date, category, source_memory_id`

func scanEvent(row interface{ Scan(dest ...any) error }) (TimelineEvent, error) {
	var e TimelineEvent
	var eventDate string
	if err := row.Scan(&e.ID, &e.User, &e.Description, &e.Person, &eventDate, &e.Category, &e.SourceMemoryID); err != nil {
		return e, err
	}
	e.EventDate = parseTime(eventDate)
	return e, nil
}

func (s *Store) InsertEvent(e TimelineEvent) error {
	_, err := s.db.Exec(`INSERT INTO timeline_events (id, user_id, description, person, event_date, category, source_memory_id)
		VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.User, e.Description, e.Person, fmtTime(e.EventDate), e.Category, e.SourceMemoryID)
	if err != nil {
		return errInternal("store.InsertEvent", err)
	}
	return nil
}

// EventsForUser returns timeline events in [from, to], optionally by person.
func (s *Store) EventsForUser(user string, from, to time.Time, person string) ([]TimelineEvent, error) {
	q := `SELECT ` + eventSelectCols + ` FROM timeline_events WHERE user_id = ? AND event_date >= ? AND event_date <= ?`
	args := []any{user, fmtTime(from), fmtTime(to)}
	if person != "" {
		q += " AND person = ?"
		args = append(args, person)
	}
	q += " ORDER BY event_date ASC"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errInternal("store.EventsForUser", err)
	}
	defer rows.Close()
	var out []TimelineEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errInternal("store.EventsForUser", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEventsForSource removes timeline events derived from a memory,
// used by cascadeForget.
func (s *Store) DeleteEventsForSource(sourceMemoryID string) error {
	_, err := s.db.Exec(`DELETE FROM timeline_events WHERE source_memory_id = ?`, sourceMemoryID)
	if err != nil {
		return errInternal("store.DeleteEventsForSource", err)
	}
	return nil
}

// --- relationships ---

func scanRelationship(row interface{ Scan(dest ...any) error }) (Relationship, error) {
	var r Relationship
	var trend, sensitivitiesJSON, lastInteraction string
	if err := row.Scan(&r.User, &r.ContactName, &r.TotalInteractions, &lastInteraction,
		&trend, &sensitivitiesJSON, &r.ColdThresholdDays); err != nil {
		return r, err
	}
	r.EngagementTrend = EngagementTrend(trend)
	r.LastInteractionAt = parseTime(lastInteraction)
	jsonDecode(sensitivitiesJSON, &r.Sensitivities)
	return r, nil
}

const relationshipSelectCols = `user_id, contact_name, total_interactions, last_interaction_at, engagement_trend, sensitivities, cold_threshold_days`

func (s *Store) GetRelationship(user, contact string) (Relationship, error) {
	row := s.db.QueryRow(`SELECT `+relationshipSelectCols+` FROM relationships WHERE user_id = ? AND contact_name = ?`, user, contact)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return r, errNotFound("store.GetRelationship", "relationship not found")
	}
	if err != nil {
		return r, errInternal("store.GetRelationship", err)
	}
	return r, nil
}

// UpsertRelationship inserts or merges an interaction into a relationship
// aggregate, mirroring the teacher's UpsertWaypoint insert-or-reinforce shape.
func (s *Store) UpsertRelationship(r Relationship) error {
	_, err := s.db.Exec(`
		INSERT INTO relationships (user_id, contact_name, total_interactions, last_interaction_at, engagement_trend, sensitivities, cold_threshold_days)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(user_id, contact_name) DO UPDATE SET
			total_interactions = excluded.total_interactions,
			last_interaction_at = excluded.last_interaction_at,
			engagement_trend = excluded.engagement_trend,
			sensitivities = excluded.sensitivities,
			cold_threshold_days = excluded.cold_threshold_days`,
		r.User, r.ContactName, r.TotalInteractions, fmtTime(r.LastInteractionAt),
		string(r.EngagementTrend), jsonEncode(r.Sensitivities), r.ColdThresholdDays,
	)
	if err != nil {
		return errInternal("store.UpsertRelationship", err)
	}
	return nil
}

func (s *Store) RelationshipsForUser(user string) ([]Relationship, error) {
	rows, err := s.db.Query(`SELECT `+relationshipSelectCols+` FROM relationships WHERE user_id = ? ORDER BY last_interaction_at DESC`, user)
	if err != nil {
		return nil, errInternal("store.RelationshipsForUser", err)
	}
	defer rows.Close()
	var out []Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, errInternal("store.RelationshipsForUser", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRelationship removes a contact's aggregate entirely (forgetPerson).
func (s *Store) DeleteRelationship(user, contact string) error {
	_, err := s.db.Exec(`DELETE FROM relationships WHERE user_id = ? AND contact_name = ?`, user, contact)
	if err != nil {
		return errInternal("store.DeleteRelationship", err)
	}
	return nil
}

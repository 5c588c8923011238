package memento

import (
	"database/sql"
	"time"
)

// --- observations ---

func (s *Store) InsertObservation(o ContextObservation) error {
	_, err := s.db.Exec(`INSERT INTO observations (id, user_id, observed_at, time_of_day, day_of_week,
		location_bucket, people, activity, recurring_event_title) VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, o.User, fmtTime(o.ObservedAt), string(o.TimeOfDay), int(o.DayOfWeek),
		o.LocationBucket, jsonEncode(o.People), o.Activity, o.RecurringEventTitle,
	)
	if err != nil {
		return errInternal("store.InsertObservation", err)
	}
	return nil
}

func scanObservation(row interface{ Scan(dest ...any) error }) (ContextObservation, error) {
	var o ContextObservation
	var observedAt, timeOfDay, peopleJSON string
	var dayOfWeek int
	if err := row.Scan(&o.ID, &o.User, &observedAt, &timeOfDay, &dayOfWeek,
		&o.LocationBucket, &peopleJSON, &o.Activity, &o.RecurringEventTitle); err != nil {
		return o, err
	}
	o.ObservedAt = parseTime(observedAt)
	o.TimeOfDay = TimeBucket(timeOfDay)
	o.DayOfWeek = time.Weekday(dayOfWeek)
	jsonDecode(peopleJSON, &o.People)
	return o, nil
}

const observationSelectCols = `id, user_id, observed_at, time_of_day, day_of_week, location_bucket, people, activity, recurring_event_title`

// ObservationsSince returns observations for pattern formation, oldest first.
func (s *Store) ObservationsSince(user string, since time.Time) ([]ContextObservation, error) {
	rows, err := s.db.Query(`SELECT `+observationSelectCols+` FROM observations
		WHERE user_id = ? AND observed_at >= ? ORDER BY observed_at ASC`, user, fmtTime(since))
	if err != nil {
		return nil, errInternal("store.ObservationsSince", err)
	}
	defer rows.Close()
	var out []ContextObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, errInternal("store.ObservationsSince", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DistinctObservationUsers lists every user with at least one recorded
// observation, driving the pattern formation sweep.
func (s *Store) DistinctObservationUsers() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM observations`)
	if err != nil {
		return nil, errInternal("store.DistinctObservationUsers", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, errInternal("store.DistinctObservationUsers", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- patterns ---

func scanPattern(row interface{ Scan(dest ...any) error }) (Pattern, error) {
	var p Pattern
	var timeOfDay, locationBucket, recurringEventTitle, prototypeJSON, status string
	var dayOfWeek int
	var lastObserved, firstObserved string
	var formedAt sql.NullString
	if err := row.Scan(&p.ID, &p.User, &timeOfDay, &dayOfWeek, &locationBucket, &recurringEventTitle,
		&prototypeJSON, &p.Count, &p.Confidence, &lastObserved, &firstObserved, &formedAt, &status); err != nil {
		return p, err
	}
	p.Key = FeatureKey{
		TimeOfDay:           TimeBucket(timeOfDay),
		DayOfWeek:           time.Weekday(dayOfWeek),
		LocationBucket:      locationBucket,
		RecurringEventTitle: recurringEventTitle,
	}
	jsonDecode(prototypeJSON, &p.Prototype)
	p.LastObservedAt = parseTime(lastObserved)
	p.FirstObservedAt = parseTime(firstObserved)
	p.FormedAt = parseTimePtr(formedAt)
	p.Status = PatternStatus(status)
	return p, nil
}

const patternSelectCols = `id, user_id, time_of_day, day_of_week, location_bucket, recurring_event_title,
	prototype_json, count, confidence, last_observed_at, first_observed_at, formed_at, status`

// FindPattern looks up a pattern by its feature key, returning NotFound if absent.
func (s *Store) FindPattern(user string, key FeatureKey) (Pattern, error) {
	row := s.db.QueryRow(`SELECT `+patternSelectCols+` FROM patterns
		WHERE user_id = ? AND time_of_day = ? AND day_of_week = ? AND location_bucket = ? AND recurring_event_title = ?`,
		user, string(key.TimeOfDay), int(key.DayOfWeek), key.LocationBucket, key.RecurringEventTitle)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return p, errNotFound("store.FindPattern", "pattern not found")
	}
	if err != nil {
		return p, errInternal("store.FindPattern", err)
	}
	return p, nil
}

// GetPatternByID looks up a pattern directly by its opaque ID.
func (s *Store) GetPatternByID(id string) (Pattern, error) {
	row := s.db.QueryRow(`SELECT `+patternSelectCols+` FROM patterns WHERE id = ?`, id)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return p, errNotFound("store.GetPatternByID", "pattern not found")
	}
	if err != nil {
		return p, errInternal("store.GetPatternByID", err)
	}
	return p, nil
}

// UpsertPattern inserts a new pattern or reinforces an existing one (keyed
// by the user+feature-key unique index), mirroring the teacher's
// UpsertWaypoint insert-or-reinforce shape.
func (s *Store) UpsertPattern(p Pattern) error {
	_, err := s.db.Exec(`
		INSERT INTO patterns (id, user_id, time_of_day, day_of_week, location_bucket, recurring_event_title,
			prototype_json, count, confidence, last_observed_at, first_observed_at, formed_at, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, time_of_day, day_of_week, location_bucket, recurring_event_title) DO UPDATE SET
			prototype_json = excluded.prototype_json,
			count = excluded.count,
			confidence = excluded.confidence,
			last_observed_at = excluded.last_observed_at,
			formed_at = excluded.formed_at,
			status = excluded.status`,
		p.ID, p.User, string(p.Key.TimeOfDay), int(p.Key.DayOfWeek), p.Key.LocationBucket, p.Key.RecurringEventTitle,
		jsonEncode(p.Prototype), p.Count, p.Confidence, fmtTime(p.LastObservedAt), fmtTime(p.FirstObservedAt),
		fmtTimePtr(p.FormedAt), string(p.Status),
	)
	if err != nil {
		return errInternal("store.UpsertPattern", err)
	}
	return nil
}

func (s *Store) PatternsForUser(user string, status PatternStatus) ([]Pattern, error) {
	q := `SELECT ` + patternSelectCols + ` FROM patterns WHERE user_id = ?`
	args := []any{user}
	if status != "" {
		q += " AND status = ?"
		args = append(args, string(status))
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errInternal("store.PatternsForUser", err)
	}
	defer rows.Close()
	var out []Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, errInternal("store.PatternsForUser", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendPatternFeedback records one feedback ledger entry for a pattern.
func (s *Store) AppendPatternFeedback(patternID string, action FeedbackAction, at time.Time) error {
	_, err := s.db.Exec(`INSERT INTO pattern_feedback (pattern_id, action, at) VALUES (?,?,?)`,
		patternID, string(action), fmtTime(at))
	if err != nil {
		return errInternal("store.AppendPatternFeedback", err)
	}
	return nil
}

func (s *Store) PatternFeedbackLedger(patternID string) ([]PatternFeedback, error) {
	rows, err := s.db.Query(`SELECT action, at FROM pattern_feedback WHERE pattern_id = ? ORDER BY at ASC`, patternID)
	if err != nil {
		return nil, errInternal("store.PatternFeedbackLedger", err)
	}
	defer rows.Close()
	var out []PatternFeedback
	for rows.Next() {
		var action, at string
		if err := rows.Scan(&action, &at); err != nil {
			return nil, errInternal("store.PatternFeedbackLedger", err)
		}
		out = append(out, PatternFeedback{Action: FeedbackAction(action), At: parseTime(at)})
	}
	return out, rows.Err()
}

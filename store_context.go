package memento

import (
	"database/sql"
)

func scanFrame(row interface{ Scan(dest ...any) error }) (ContextFrame, error) {
	var f ContextFrame
	var deviceType, locationJSON, peopleJSON, activityJSON, moodJSON, calendarJSON, lastUpdated string
	if err := row.Scan(&f.User, &f.DeviceID, &deviceType, &locationJSON, &peopleJSON,
		&activityJSON, &moodJSON, &calendarJSON, &lastUpdated); err != nil {
		return f, err
	}
	f.DeviceType = DeviceType(deviceType)
	jsonDecode(locationJSON, &f.Location)
	jsonDecode(peopleJSON, &f.People)
	jsonDecode(activityJSON, &f.Activity)
	jsonDecode(moodJSON, &f.Mood)
	jsonDecode(calendarJSON, &f.Calendar)
	f.LastUpdated = parseTime(lastUpdated)
	return f, nil
}

const frameSelectCols = `user_id, device_id, device_type, location_json, people, activity_json, mood_json, calendar_json, last_updated`

func (s *Store) GetContextFrame(user, device string) (ContextFrame, error) {
	row := s.db.QueryRow(`SELECT `+frameSelectCols+` FROM context_frames WHERE user_id = ? AND device_id = ?`, user, device)
	f, err := scanFrame(row)
	if err == sql.ErrNoRows {
		return f, errNotFound("store.GetContextFrame", "context frame not found")
	}
	if err != nil {
		return f, errInternal("store.GetContextFrame", err)
	}
	return f, nil
}

func (s *Store) PutContextFrame(f ContextFrame) error {
	_, err := s.db.Exec(`
		INSERT INTO context_frames (user_id, device_id, device_type, location_json, people, activity_json, mood_json, calendar_json, last_updated)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, device_id) DO UPDATE SET
			device_type = excluded.device_type,
			location_json = excluded.location_json,
			people = excluded.people,
			activity_json = excluded.activity_json,
			mood_json = excluded.mood_json,
			calendar_json = excluded.calendar_json,
			last_updated = excluded.last_updated`,
		f.User, f.DeviceID, string(f.DeviceType), jsonEncode(f.Location), jsonEncode(f.People),
		jsonEncode(f.Activity), jsonEncode(f.Mood), jsonEncode(f.Calendar), fmtTime(f.LastUpdated),
	)
	if err != nil {
		return errInternal("store.PutContextFrame", err)
	}
	return nil
}

// FramesForUser returns all device frames for a user, most recently updated first.
func (s *Store) FramesForUser(user string) ([]ContextFrame, error) {
	rows, err := s.db.Query(`SELECT `+frameSelectCols+` FROM context_frames WHERE user_id = ? ORDER BY last_updated DESC`, user)
	if err != nil {
		return nil, errInternal("store.FramesForUser", err)
	}
	defer rows.Close()
	var out []ContextFrame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, errInternal("store.FramesForUser", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContextFrame(user, device string) error {
	_, err := s.db.Exec(`DELETE FROM context_frames WHERE user_id = ? AND device_id = ?`, user, device)
	if err != nil {
		return errInternal("store.DeleteContextFrame", err)
	}
	return nil
}

// DeleteOldestFrame evicts the least-recently-updated frame for a user,
// used for cold-start eviction once MaxDevicesPerUser is exceeded.
func (s *Store) DeleteOldestFrame(user string) error {
	_, err := s.db.Exec(`DELETE FROM context_frames WHERE rowid = (
		SELECT rowid FROM context_frames WHERE user_id = ? ORDER BY last_updated ASC LIMIT 1)`, user)
	if err != nil {
		return errInternal("store.DeleteOldestFrame", err)
	}
	return nil
}

func (s *Store) CountFrames(user string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM context_frames WHERE user_id = ?`, user).Scan(&n)
	if err != nil {
		return 0, errInternal("store.CountFrames", err)
	}
	return n, nil
}

package memento

import (
	"database/sql"
	"time"
)

func (s *Store) GetFingerprint(user string) (BehavioralFingerprint, error) {
	var f BehavioralFingerprint
	var signalsJSON, lastUpdated string
	err := s.db.QueryRow(`SELECT user_id, sample_count, signals_json, last_updated FROM behavioral_fingerprints WHERE user_id = ?`, user).
		Scan(&f.User, &f.SampleCount, &signalsJSON, &lastUpdated)
	if err == sql.ErrNoRows {
		return f, errNotFound("store.GetFingerprint", "fingerprint not found")
	}
	if err != nil {
		return f, errInternal("store.GetFingerprint", err)
	}
	jsonDecode(signalsJSON, &f.Signals)
	f.LastUpdated = parseTime(lastUpdated)
	return f, nil
}

func (s *Store) PutFingerprint(f BehavioralFingerprint) error {
	_, err := s.db.Exec(`
		INSERT INTO behavioral_fingerprints (user_id, sample_count, signals_json, last_updated)
		VALUES (?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
			sample_count = excluded.sample_count,
			signals_json = excluded.signals_json,
			last_updated = excluded.last_updated`,
		f.User, f.SampleCount, jsonEncode(f.Signals), fmtTime(f.LastUpdated),
	)
	if err != nil {
		return errInternal("store.PutFingerprint", err)
	}
	return nil
}

// AllReadyFingerprints returns every fingerprint with at least threshold
// samples, the candidate pool for identifyUser.
func (s *Store) AllReadyFingerprints(threshold int) ([]BehavioralFingerprint, error) {
	rows, err := s.db.Query(`SELECT user_id, sample_count, signals_json, last_updated
		FROM behavioral_fingerprints WHERE sample_count >= ?`, threshold)
	if err != nil {
		return nil, errInternal("store.AllReadyFingerprints", err)
	}
	defer rows.Close()
	var out []BehavioralFingerprint
	for rows.Next() {
		var f BehavioralFingerprint
		var signalsJSON, lastUpdated string
		if err := rows.Scan(&f.User, &f.SampleCount, &signalsJSON, &lastUpdated); err != nil {
			return nil, errInternal("store.AllReadyFingerprints", err)
		}
		jsonDecode(signalsJSON, &f.Signals)
		f.LastUpdated = parseTime(lastUpdated)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) InsertPrediction(p Prediction) error {
	_, err := s.db.Exec(`INSERT INTO behavioral_predictions (id, message_hash, predicted_user, confidence,
		per_block_json, observed_at, feedback, actual_user, feedback_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.MessageHash, p.PredictedUser, p.Confidence, jsonEncode(p.PerBlockScores),
		fmtTime(p.ObservedAt), string(p.Feedback), p.ActualUser, fmtTimePtr(p.FeedbackAt),
	)
	if err != nil {
		return errInternal("store.InsertPrediction", err)
	}
	return nil
}

func (s *Store) GetPrediction(id string) (Prediction, error) {
	var p Prediction
	var perBlockJSON, observedAt, feedback string
	var feedbackAt sql.NullString
	err := s.db.QueryRow(`SELECT id, message_hash, predicted_user, confidence, per_block_json,
		observed_at, feedback, actual_user, feedback_at FROM behavioral_predictions WHERE id = ?`, id).
		Scan(&p.ID, &p.MessageHash, &p.PredictedUser, &p.Confidence, &perBlockJSON,
			&observedAt, &feedback, &p.ActualUser, &feedbackAt)
	if err == sql.ErrNoRows {
		return p, errNotFound("store.GetPrediction", "prediction not found")
	}
	if err != nil {
		return p, errInternal("store.GetPrediction", err)
	}
	jsonDecode(perBlockJSON, &p.PerBlockScores)
	p.ObservedAt = parseTime(observedAt)
	p.Feedback = PredictionFeedback(feedback)
	p.FeedbackAt = parseTimePtr(feedbackAt)
	return p, nil
}

// PredictionsForUser returns the most recent predictions naming user as
// either the predicted or the feedback-corrected author, newest first,
// capped at limit — the transparency trail behind behavioralMetrics.
func (s *Store) PredictionsForUser(user string, limit int) ([]Prediction, error) {
	rows, err := s.db.Query(`SELECT id, message_hash, predicted_user, confidence, per_block_json,
		observed_at, feedback, actual_user, feedback_at FROM behavioral_predictions
		WHERE predicted_user = ? OR actual_user = ? ORDER BY observed_at DESC LIMIT ?`, user, user, limit)
	if err != nil {
		return nil, errInternal("store.PredictionsForUser", err)
	}
	defer rows.Close()
	var out []Prediction
	for rows.Next() {
		var p Prediction
		var perBlockJSON, observedAt, feedback string
		var feedbackAt sql.NullString
		if err := rows.Scan(&p.ID, &p.MessageHash, &p.PredictedUser, &p.Confidence, &perBlockJSON,
			&observedAt, &feedback, &p.ActualUser, &feedbackAt); err != nil {
			return nil, errInternal("store.PredictionsForUser", err)
		}
		jsonDecode(perBlockJSON, &p.PerBlockScores)
		p.ObservedAt = parseTime(observedAt)
		p.Feedback = PredictionFeedback(feedback)
		p.FeedbackAt = parseTimePtr(feedbackAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordPredictionFeedback updates a prediction with a confirmed/corrected
// outcome, used to calibrate future identifyUser scoring.
func (s *Store) RecordPredictionFeedback(id string, feedback PredictionFeedback, actualUser string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE behavioral_predictions SET feedback = ?, actual_user = ?, feedback_at = ? WHERE id = ?`,
		string(feedback), actualUser, fmtTime(at), id)
	if err != nil {
		return errInternal("store.RecordPredictionFeedback", err)
	}
	return nil
}

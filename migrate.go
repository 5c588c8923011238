package memento

// migrate runs version-gated schema migrations, exactly the teacher's
// store.go migrate() shape (schema_version table + `if version < N` blocks),
// generalized from four tables (memories/vectors/waypoints/associations) to
// the full spec.md §3 entity set. There is no vectors/waypoints table here:
// vectors live in the sqvect-backed VectorStore (vectorstore_sqvect.go), and
// waypoint-style entity linking is superseded by the people/topics columns
// on memories plus the relationships table.
func (s *Store) migrate() error {
	s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)

	var version int
	s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS memories (
				id                  TEXT PRIMARY KEY,
				user_id             TEXT    NOT NULL,
				created_at          TEXT    NOT NULL,
				text                TEXT    NOT NULL,
				normalized_text     TEXT    NOT NULL DEFAULT '',
				features_json       TEXT    NOT NULL DEFAULT '{}',
				salience            INTEGER NOT NULL DEFAULT 0,
				salience_factors    TEXT    NOT NULL DEFAULT '{}',
				security_tier       TEXT    NOT NULL DEFAULT 'general',
				has_envelope        INTEGER NOT NULL DEFAULT 0,
				forgotten_state     TEXT    NOT NULL DEFAULT 'active',
				forgotten_at        TEXT,
				forgotten_reason    TEXT    NOT NULL DEFAULT '',
				project_tag         TEXT    NOT NULL DEFAULT '',
				added_tags          TEXT    NOT NULL DEFAULT '[]',
				added_topics        TEXT    NOT NULL DEFAULT '[]',
				extraction_status   TEXT    NOT NULL DEFAULT 'ok',
				last_voted_at       TEXT,
				pending_vector_sync INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_memories_user_created   ON memories(user_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_memories_user_salience  ON memories(user_id, salience DESC);
			CREATE INDEX IF NOT EXISTS idx_memories_user_forgotten ON memories(user_id, forgotten_state);

			CREATE TABLE IF NOT EXISTS open_loops (
				id               TEXT PRIMARY KEY,
				user_id          TEXT NOT NULL,
				description      TEXT NOT NULL,
				owner            TEXT NOT NULL,
				other_party      TEXT NOT NULL DEFAULT '',
				due_date         TEXT,
				loop_type        TEXT NOT NULL DEFAULT '',
				source_memory_id TEXT NOT NULL DEFAULT '',
				created_at       TEXT NOT NULL,
				closed_at        TEXT,
				closed_note      TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_loops_user        ON open_loops(user_id);
			CREATE INDEX IF NOT EXISTS idx_loops_source      ON open_loops(source_memory_id);
			CREATE INDEX IF NOT EXISTS idx_loops_other_party ON open_loops(user_id, other_party);

			CREATE TABLE IF NOT EXISTS timeline_events (
				id               TEXT PRIMARY KEY,
				user_id          TEXT NOT NULL,
				description      TEXT NOT NULL,
				person           TEXT NOT NULL DEFAULT '',
				event_date       TEXT NOT NULL,
				category         TEXT NOT NULL DEFAULT '',
				source_memory_id TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_events_user        ON timeline_events(user_id, event_date);
			CREATE INDEX IF NOT EXISTS idx_events_source      ON timeline_events(source_memory_id);
			CREATE INDEX IF NOT EXISTS idx_events_person      ON timeline_events(user_id, person);

			CREATE TABLE IF NOT EXISTS relationships (
				user_id             TEXT NOT NULL,
				contact_name        TEXT NOT NULL,
				total_interactions  INTEGER NOT NULL DEFAULT 0,
				last_interaction_at TEXT NOT NULL,
				engagement_trend    TEXT NOT NULL DEFAULT 'stable',
				sensitivities       TEXT NOT NULL DEFAULT '[]',
				cold_threshold_days INTEGER NOT NULL DEFAULT 30,
				PRIMARY KEY (user_id, contact_name)
			);

			CREATE TABLE IF NOT EXISTS context_frames (
				user_id        TEXT NOT NULL,
				device_id      TEXT NOT NULL,
				device_type    TEXT NOT NULL DEFAULT 'api',
				location_json  TEXT NOT NULL DEFAULT '{}',
				people         TEXT NOT NULL DEFAULT '[]',
				activity_json  TEXT NOT NULL DEFAULT '{}',
				mood_json      TEXT NOT NULL DEFAULT '{}',
				calendar_json  TEXT NOT NULL DEFAULT '[]',
				last_updated   TEXT NOT NULL,
				PRIMARY KEY (user_id, device_id)
			);
			CREATE INDEX IF NOT EXISTS idx_frames_user ON context_frames(user_id, last_updated);

			CREATE TABLE IF NOT EXISTS observations (
				id                    TEXT PRIMARY KEY,
				user_id               TEXT NOT NULL,
				observed_at           TEXT NOT NULL,
				time_of_day           TEXT NOT NULL,
				day_of_week           INTEGER NOT NULL,
				location_bucket       TEXT NOT NULL DEFAULT '',
				people                TEXT NOT NULL DEFAULT '[]',
				activity              TEXT NOT NULL DEFAULT '',
				recurring_event_title TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_observations_user ON observations(user_id, observed_at);
			CREATE INDEX IF NOT EXISTS idx_observations_bucket ON observations(user_id, time_of_day, day_of_week, location_bucket, recurring_event_title);

			CREATE TABLE IF NOT EXISTS patterns (
				id                TEXT PRIMARY KEY,
				user_id           TEXT NOT NULL,
				time_of_day       TEXT NOT NULL,
				day_of_week       INTEGER NOT NULL,
				location_bucket   TEXT NOT NULL DEFAULT '',
				recurring_event_title TEXT NOT NULL DEFAULT '',
				prototype_json    TEXT NOT NULL DEFAULT '{}',
				count             INTEGER NOT NULL DEFAULT 0,
				confidence        REAL NOT NULL DEFAULT 0,
				last_observed_at  TEXT NOT NULL,
				first_observed_at TEXT NOT NULL,
				formed_at         TEXT,
				status            TEXT NOT NULL DEFAULT 'new',
				UNIQUE(user_id, time_of_day, day_of_week, location_bucket, recurring_event_title)
			);
			CREATE INDEX IF NOT EXISTS idx_patterns_user ON patterns(user_id, status);

			CREATE TABLE IF NOT EXISTS pattern_feedback (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				pattern_id TEXT NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
				action     TEXT NOT NULL,
				at         TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_pattern_feedback_pattern ON pattern_feedback(pattern_id);

			CREATE TABLE IF NOT EXISTS behavioral_fingerprints (
				user_id      TEXT PRIMARY KEY,
				sample_count INTEGER NOT NULL DEFAULT 0,
				signals_json TEXT NOT NULL DEFAULT '{}',
				last_updated TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS behavioral_predictions (
				id              TEXT PRIMARY KEY,
				message_hash    TEXT NOT NULL,
				predicted_user  TEXT NOT NULL,
				confidence      REAL NOT NULL,
				per_block_json  TEXT NOT NULL DEFAULT '{}',
				observed_at     TEXT NOT NULL,
				feedback        TEXT NOT NULL DEFAULT '',
				actual_user     TEXT NOT NULL DEFAULT '',
				feedback_at     TEXT
			);

			PRAGMA foreign_keys = ON;
		`); err != nil {
			return err
		}
		s.db.Exec(`INSERT INTO schema_version (version) VALUES (1)`)
	}

	if version < 2 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS memory_people (
				memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				user_id   TEXT NOT NULL,
				person    TEXT NOT NULL COLLATE NOCASE,
				PRIMARY KEY (memory_id, person)
			);
			CREATE INDEX IF NOT EXISTS idx_memory_people_user_person ON memory_people(user_id, person);
		`); err != nil {
			return err
		}
		s.db.Exec(`INSERT INTO schema_version (version) VALUES (2)`)
	}

	return nil
}

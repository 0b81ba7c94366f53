package store

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const tableMigrations = "schema_migrations"

// migration is one versioned schema step. Statements are listed per dialect
// because the id and float column types differ.
type migration struct {
	version  int
	name     string
	sqlite   []string
	postgres []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "directory",
		sqlite: []string{
			`CREATE TABLE courses (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL,
				instructor_id TEXT NOT NULL
			)`,
			`CREATE TABLE lessons (
				id        TEXT PRIMARY KEY,
				course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				title     TEXT NOT NULL,
				summary   TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE enrollments (
				course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				user_id   TEXT NOT NULL,
				PRIMARY KEY (course_id, user_id)
			)`,
			`CREATE TABLE users (
				id                   TEXT PRIMARY KEY,
				readiness_score      REAL NOT NULL DEFAULT 0,
				readiness_quiz_count INTEGER NOT NULL DEFAULT 0,
				readiness_updated_at INTEGER
			)`,
		},
		postgres: []string{
			`CREATE TABLE courses (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL,
				instructor_id TEXT NOT NULL
			)`,
			`CREATE TABLE lessons (
				id        TEXT PRIMARY KEY,
				course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				title     TEXT NOT NULL,
				summary   TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE enrollments (
				course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				user_id   TEXT NOT NULL,
				PRIMARY KEY (course_id, user_id)
			)`,
			`CREATE TABLE users (
				id                   TEXT PRIMARY KEY,
				readiness_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
				readiness_quiz_count INTEGER NOT NULL DEFAULT 0,
				readiness_updated_at BIGINT
			)`,
		},
	},
	{
		version: 2,
		name:    "attempts",
		sqlite: []string{
			`CREATE TABLE ai_quiz_attempts (
				id             TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL,
				topic          TEXT NOT NULL,
				title          TEXT NOT NULL,
				difficulty     TEXT NOT NULL,
				questions_json TEXT NOT NULL,
				answers_json   TEXT,
				score          INTEGER,
				feedback       TEXT,
				status         TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
				created_at     INTEGER NOT NULL,
				completed_at   INTEGER
			)`,
			`CREATE INDEX ai_quiz_attempts_user_created_idx ON ai_quiz_attempts (user_id, created_at)`,
			`CREATE TABLE quizzes (
				id             TEXT PRIMARY KEY,
				course_id      TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				author_id      TEXT NOT NULL,
				title          TEXT NOT NULL,
				questions_json TEXT NOT NULL,
				created_at     INTEGER NOT NULL
			)`,
			`CREATE INDEX quizzes_course_idx ON quizzes (course_id, created_at)`,
			`CREATE TABLE quiz_attempts (
				id           TEXT PRIMARY KEY,
				quiz_id      TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
				user_id      TEXT NOT NULL,
				answers_json TEXT,
				score        INTEGER,
				status       TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
				created_at   INTEGER NOT NULL,
				completed_at INTEGER
			)`,
			`CREATE INDEX quiz_attempts_quiz_user_idx ON quiz_attempts (quiz_id, user_id, status)`,
		},
		postgres: []string{
			`CREATE TABLE ai_quiz_attempts (
				id             TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL,
				topic          TEXT NOT NULL,
				title          TEXT NOT NULL,
				difficulty     TEXT NOT NULL,
				questions_json TEXT NOT NULL,
				answers_json   TEXT,
				score          INTEGER,
				feedback       TEXT,
				status         TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
				created_at     BIGINT NOT NULL,
				completed_at   BIGINT
			)`,
			`CREATE INDEX ai_quiz_attempts_user_created_idx ON ai_quiz_attempts (user_id, created_at)`,
			`CREATE TABLE quizzes (
				id             TEXT PRIMARY KEY,
				course_id      TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				author_id      TEXT NOT NULL,
				title          TEXT NOT NULL,
				questions_json TEXT NOT NULL,
				created_at     BIGINT NOT NULL
			)`,
			`CREATE INDEX quizzes_course_idx ON quizzes (course_id, created_at)`,
			`CREATE TABLE quiz_attempts (
				id           TEXT PRIMARY KEY,
				quiz_id      TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
				user_id      TEXT NOT NULL,
				answers_json TEXT,
				score        INTEGER,
				status       TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
				created_at   BIGINT NOT NULL,
				completed_at BIGINT
			)`,
			`CREATE INDEX quiz_attempts_quiz_user_idx ON quiz_attempts (quiz_id, user_id, status)`,
		},
	},
	{
		version: 3,
		name:    "lesson_quizzes",
		sqlite: []string{
			`CREATE TABLE lesson_quizzes (
				lesson_id      TEXT PRIMARY KEY REFERENCES lessons(id) ON DELETE CASCADE,
				questions_json TEXT NOT NULL,
				created_at     INTEGER NOT NULL
			)`,
			`CREATE TABLE lesson_quiz_attempts (
				id            TEXT PRIMARY KEY,
				lesson_id     TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
				user_id       TEXT NOT NULL,
				answers_json  TEXT NOT NULL,
				correct_count INTEGER NOT NULL,
				total         INTEGER NOT NULL,
				percentage    REAL NOT NULL,
				completed_at  INTEGER NOT NULL
			)`,
			`CREATE INDEX lesson_quiz_attempts_lesson_user_idx ON lesson_quiz_attempts (lesson_id, user_id)`,
		},
		postgres: []string{
			`CREATE TABLE lesson_quizzes (
				lesson_id      TEXT PRIMARY KEY REFERENCES lessons(id) ON DELETE CASCADE,
				questions_json TEXT NOT NULL,
				created_at     BIGINT NOT NULL
			)`,
			`CREATE TABLE lesson_quiz_attempts (
				id            TEXT PRIMARY KEY,
				lesson_id     TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
				user_id       TEXT NOT NULL,
				answers_json  TEXT NOT NULL,
				correct_count INTEGER NOT NULL,
				total         INTEGER NOT NULL,
				percentage    DOUBLE PRECISION NOT NULL,
				completed_at  BIGINT NOT NULL
			)`,
			`CREATE INDEX lesson_quiz_attempts_lesson_user_idx ON lesson_quiz_attempts (lesson_id, user_id)`,
		},
	},
	{
		version: 4,
		name:    "llm_request_events",
		sqlite: []string{
			`CREATE TABLE llm_request_events (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at    INTEGER NOT NULL,
				provider      TEXT NOT NULL,
				model         TEXT NOT NULL,
				purpose       TEXT NOT NULL,
				input_tokens  INTEGER NOT NULL DEFAULT 0,
				output_tokens INTEGER NOT NULL DEFAULT 0,
				latency_ms    INTEGER NOT NULL DEFAULT 0,
				success       BOOLEAN NOT NULL,
				error_message TEXT,
				request_body  TEXT,
				response_body TEXT
			)`,
			`CREATE INDEX llm_request_events_created_idx ON llm_request_events (created_at)`,
		},
		postgres: []string{
			`CREATE TABLE llm_request_events (
				id            BIGSERIAL PRIMARY KEY,
				created_at    BIGINT NOT NULL,
				provider      TEXT NOT NULL,
				model         TEXT NOT NULL,
				purpose       TEXT NOT NULL,
				input_tokens  INTEGER NOT NULL DEFAULT 0,
				output_tokens INTEGER NOT NULL DEFAULT 0,
				latency_ms    BIGINT NOT NULL DEFAULT 0,
				success       BOOLEAN NOT NULL,
				error_message TEXT,
				request_body  TEXT,
				response_body TEXT
			)`,
			`CREATE INDEX llm_request_events_created_idx ON llm_request_events (created_at)`,
		},
	},
	{
		version: 5,
		name:    "lesson_quiz_versions",
		sqlite: []string{
			`ALTER TABLE lesson_quizzes ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
			`ALTER TABLE lesson_quiz_attempts ADD COLUMN quiz_version INTEGER NOT NULL DEFAULT 1`,
		},
		postgres: []string{
			`ALTER TABLE lesson_quizzes ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
			`ALTER TABLE lesson_quiz_attempts ADD COLUMN quiz_version INTEGER NOT NULL DEFAULT 1`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction together with its version row.
func (s *Store) Migrate(ctx context.Context) error {
	create := `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", tableMigrations, err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		stmts := m.sqlite
		if s.dialect == dialect.Postgres {
			stmts = m.postgres
		}
		if err := s.applyMigration(ctx, m, stmts); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}
	v := 0
	for version := range applied {
		if version > v {
			v = version
		}
	}
	return v, nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	b := entsql.Dialect(s.dialect)
	query, args := b.Select("version").From(b.Table(tableMigrations)).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tableMigrations, err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableMigrations, err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *Store) applyMigration(ctx context.Context, m migration, stmts []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}

	query, args := entsql.Dialect(s.dialect).Insert(tableMigrations).
		Columns("version", "name", "applied_at").
		Values(m.version, m.name, millis(now())).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

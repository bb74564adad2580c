package postgresql

import (
	"context"
	"fmt"

	"github.com/aulaiot/attendance-backend/internal/pkg/database"
)

// schema is applied on startup when AUTO_MIGRATE is set. Every statement is
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS classrooms (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    building     INTEGER NOT NULL DEFAULT 0,
    device_id    TEXT NOT NULL UNIQUE,
    status       TEXT NOT NULL DEFAULT 'disconnected' CHECK (status IN ('active', 'disconnected')),
    last_seen_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS persons (
    id            TEXT PRIMARY KEY,
    identity      TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('student', 'teacher', 'administrator')),
    classroom_id  TEXT REFERENCES classrooms(id) ON DELETE SET NULL,
    email         TEXT UNIQUE,
    password_hash TEXT,
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
    id           TEXT PRIMARY KEY,
    person_id    TEXT NOT NULL REFERENCES persons(id),
    role         TEXT NOT NULL,
    classroom_id TEXT NOT NULL REFERENCES classrooms(id),
    type         TEXT NOT NULL CHECK (type IN ('entry', 'exit')),
    status       TEXT NOT NULL CHECK (status IN ('on_time', 'late', 'absent', 'justified', 'completed')),
    date         DATE NOT NULL,
    scanned_at   TIMESTAMPTZ NOT NULL,
    device_id    TEXT,
    note         TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT attendance_records_person_date_type_key UNIQUE (person_id, date, type)
);

CREATE INDEX IF NOT EXISTS idx_persons_classroom_role ON persons(classroom_id, role);
CREATE INDEX IF NOT EXISTS idx_attendance_records_classroom_date ON attendance_records(classroom_id, date);
CREATE INDEX IF NOT EXISTS idx_attendance_records_scanned_at ON attendance_records(scanned_at);
`

// Migrate creates the tables used by the repositories.
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

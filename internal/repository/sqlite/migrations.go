package sqlite

import "database/sql"

// Classrooms must be created before persons and records because of the
// foreign keys.
const schema = `
CREATE TABLE IF NOT EXISTS classrooms (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    building INTEGER NOT NULL DEFAULT 0,
    device_id TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'disconnected' CHECK (status IN ('active', 'disconnected')),
    last_seen_at TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS persons (
    id TEXT PRIMARY KEY,
    identity TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('student', 'teacher', 'administrator')),
    classroom_id TEXT REFERENCES classrooms(id) ON DELETE SET NULL,
    email TEXT UNIQUE,
    password_hash TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_records (
    id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL REFERENCES persons(id),
    role TEXT NOT NULL,
    classroom_id TEXT NOT NULL REFERENCES classrooms(id),
    type TEXT NOT NULL CHECK (type IN ('entry', 'exit')),
    status TEXT NOT NULL CHECK (status IN ('on_time', 'late', 'absent', 'justified', 'completed')),
    date TEXT NOT NULL,
    scanned_at TEXT NOT NULL,
    device_id TEXT,
    note TEXT,
    created_at TEXT NOT NULL,
    UNIQUE (person_id, date, type)
);

CREATE INDEX IF NOT EXISTS idx_persons_classroom_role ON persons(classroom_id, role);
CREATE INDEX IF NOT EXISTS idx_attendance_records_classroom_date ON attendance_records(classroom_id, date);
CREATE INDEX IF NOT EXISTS idx_attendance_records_scanned_at ON attendance_records(scanned_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

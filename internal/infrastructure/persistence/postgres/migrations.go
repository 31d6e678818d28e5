// Package postgres implements the PostgreSQL persistence layer of Oqu Study Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENTS, GUARDIANS, ACTIVITIES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students, guardians and activities
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    full_name VARCHAR(200) NOT NULL,
    telegram_chat_id BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_student_status CHECK (status IN ('active', 'paused', 'left'))
);

CREATE INDEX IF NOT EXISTS idx_students_status ON students(status);
CREATE INDEX IF NOT EXISTS idx_students_telegram_chat_id ON students(telegram_chat_id) WHERE telegram_chat_id != 0;

CREATE TABLE IF NOT EXISTS guardians (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    full_name VARCHAR(200) NOT NULL,
    telegram_chat_id BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_guardians_student_id ON guardians(student_id);

CREATE TABLE IF NOT EXISTS activities (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL UNIQUE,
    assignable BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS activities;
DROP TABLE IF EXISTS guardians;
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: INTERVALS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create assigned and actual intervals
-- Version: 002

CREATE TABLE IF NOT EXISTS assigned_intervals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    activity_id UUID NOT NULL REFERENCES activities(id),
    title VARCHAR(255) NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL,
    created_by UUID NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_interval CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_assigned_student_id ON assigned_intervals(student_id);
CREATE INDEX IF NOT EXISTS idx_assigned_start_time ON assigned_intervals(start_time);
CREATE INDEX IF NOT EXISTS idx_assigned_student_range ON assigned_intervals(student_id, start_time, end_time);

-- assigned_interval_id deliberately has NO foreign key: a link survives the
-- deletion of its assignment and keeps attributing the session historically.
CREATE TABLE IF NOT EXISTS actual_intervals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    assigned_interval_id UUID,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE,
    source VARCHAR(100) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_actual_interval CHECK (end_time IS NULL OR start_time <= end_time)
);

CREATE INDEX IF NOT EXISTS idx_actual_student_id ON actual_intervals(student_id);
CREATE INDEX IF NOT EXISTS idx_actual_assigned_id ON actual_intervals(assigned_interval_id) WHERE assigned_interval_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_actual_open ON actual_intervals(student_id, start_time DESC) WHERE end_time IS NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS actual_intervals;
DROP TABLE IF EXISTS assigned_intervals;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: NOTIFICATION PREFERENCES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create notification preferences
-- Version: 003

-- user_id is either a student or a guardian id; absence of a row means the
-- application default for that template/channel.
CREATE TABLE IF NOT EXISTS notification_preferences (
    user_id UUID NOT NULL,
    template_id VARCHAR(50) NOT NULL,
    channel VARCHAR(20) NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,

    PRIMARY KEY (user_id, template_id, channel)
);
`

const migration003Down = `
DROP TABLE IF EXISTS notification_preferences;
`

// GetMigrations returns all migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_students_guardians_activities", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_intervals", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_notification_preferences", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

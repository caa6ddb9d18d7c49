package db

import (
	"context"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is idempotent and
// portable between SQLite and PostgreSQL.
func Migrate(ctx context.Context, conn DBTX) error {
	for i, stmt := range migrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS principals (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		active       INTEGER NOT NULL DEFAULT 1,
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS roles (
		code       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS principal_roles (
		role_code    TEXT NOT NULL REFERENCES roles(code) ON DELETE CASCADE,
		principal_id TEXT NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
		PRIMARY KEY (role_code, principal_id)
	)`,

	`CREATE TABLE IF NOT EXISTS flow_definitions (
		id          TEXT PRIMARY KEY,
		code        TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		task_type   TEXT NOT NULL,
		version     INTEGER NOT NULL CHECK(version > 0),
		status      TEXT NOT NULL DEFAULT 'ACTIVE'
		            CHECK(status IN ('ACTIVE','SUPERSEDED')),
		created_by  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flows_code_version ON flow_definitions(code, version)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flows_active_code ON flow_definitions(code) WHERE status = 'ACTIVE'`,
	`CREATE INDEX IF NOT EXISTS idx_flows_task_type ON flow_definitions(task_type, status)`,

	`CREATE TABLE IF NOT EXISTS approval_nodes (
		id              TEXT PRIMARY KEY,
		flow_id         TEXT NOT NULL REFERENCES flow_definitions(id) ON DELETE CASCADE,
		node_order      INTEGER NOT NULL CHECK(node_order > 0),
		name            TEXT NOT NULL,
		policy          TEXT NOT NULL CHECK(policy IN ('ANY','ALL')),
		approver_kind   TEXT NOT NULL CHECK(approver_kind IN ('USER','ROLE')),
		approver_values TEXT NOT NULL DEFAULT '[]',
		timeout_hours   INTEGER,
		created_at      TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_flow_order ON approval_nodes(flow_id, node_order)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                 TEXT PRIMARY KEY,
		task_no            TEXT NOT NULL,
		title              TEXT NOT NULL,
		content            TEXT NOT NULL DEFAULT '',
		type               TEXT NOT NULL,
		priority           TEXT NOT NULL DEFAULT 'NORMAL'
		                   CHECK(priority IN ('LOW','NORMAL','HIGH','URGENT')),
		status             TEXT NOT NULL DEFAULT 'DRAFT'
		                   CHECK(status IN ('DRAFT','PENDING','IN_PROGRESS','REJECTED','APPROVED','WITHDRAWN','CANCELLED')),
		creator_id         TEXT NOT NULL REFERENCES principals(id),
		flow_id            TEXT NOT NULL REFERENCES flow_definitions(id),
		current_node_id    TEXT REFERENCES approval_nodes(id),
		current_node_order INTEGER,
		entry_round        INTEGER NOT NULL DEFAULT 0,
		version            INTEGER NOT NULL DEFAULT 1,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		submitted_at       TEXT,
		completed_at       TEXT
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_task_no ON tasks(task_no)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(creator_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS approval_records (
		id                  TEXT PRIMARY KEY,
		task_id             TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		node_id             TEXT NOT NULL REFERENCES approval_nodes(id),
		node_order          INTEGER NOT NULL,
		entry_round         INTEGER NOT NULL,
		approver_id         TEXT NOT NULL,
		approver_name       TEXT NOT NULL DEFAULT '',
		action              TEXT NOT NULL DEFAULT 'NONE'
		                    CHECK(action IN ('NONE','APPROVE','REJECT','TRANSFER','WITHDRAW')),
		result              TEXT NOT NULL DEFAULT 'PENDING'
		                    CHECK(result IN ('PENDING','APPROVED','REJECTED','TRANSFERRED','WITHDRAWN')),
		comment             TEXT NOT NULL DEFAULT '',
		reject_to_node_id   TEXT,
		transfer_to_user_id TEXT,
		transfer_to_name    TEXT,
		approval_time       TEXT,
		created_at          TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_records_task_node ON approval_records(task_id, node_id, entry_round, result)`,
	`CREATE INDEX IF NOT EXISTS idx_records_approver ON approval_records(approver_id, result)`,
	`CREATE INDEX IF NOT EXISTS idx_records_task_order ON approval_records(task_id, node_order)`,

	`CREATE TABLE IF NOT EXISTS task_sequences (
		day      TEXT PRIMARY KEY,
		next_seq INTEGER NOT NULL CHECK(next_seq > 0)
	)`,
}

// Tables lists every table created by Migrate.
var Tables = []string{
	"principals", "roles", "principal_roles",
	"flow_definitions", "approval_nodes",
	"tasks", "approval_records", "task_sequences",
}

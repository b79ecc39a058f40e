package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// commTables is the schema for the communication backend, written with
// driver-neutral column types. {{pk}} expands to the driver's
// auto-incrementing primary key clause.
var commTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		login VARCHAR(200) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		display_name VARCHAR(255),
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS apps (
		id {{pk}},
		name VARCHAR(255) NOT NULL,
		slug VARCHAR(255) NOT NULL UNIQUE,
		mozilla_contact VARCHAR(255),
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS app_user (
		app_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (app_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id {{pk}},
		name VARCHAR(255) NOT NULL UNIQUE,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS group_user (
		group_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comm_thread (
		id {{pk}},
		app_id INTEGER NOT NULL,
		version VARCHAR(255) NOT NULL,
		read_public BOOLEAN NOT NULL DEFAULT FALSE,
		read_developer BOOLEAN NOT NULL DEFAULT FALSE,
		read_reviewer BOOLEAN NOT NULL DEFAULT FALSE,
		read_senior_reviewer BOOLEAN NOT NULL DEFAULT FALSE,
		read_mozilla_contact BOOLEAN NOT NULL DEFAULT FALSE,
		read_staff BOOLEAN NOT NULL DEFAULT FALSE,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS comm_thread_cc (
		id {{pk}},
		thread_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (thread_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comm_note (
		id {{pk}},
		thread_id INTEGER NOT NULL,
		author_id INTEGER NOT NULL,
		note_type INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS comm_thread_token (
		id {{pk}},
		thread_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		uuid VARCHAR(64) NOT NULL UNIQUE,
		use_count INTEGER NOT NULL DEFAULT 0,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (thread_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS mail_queue (
		id {{pk}},
		insert_fingerprint VARCHAR(64) UNIQUE,
		note_id INTEGER,
		attempts INTEGER NOT NULL DEFAULT 0,
		sender VARCHAR(255),
		recipient VARCHAR(255) NOT NULL,
		raw_message BLOB NOT NULL,
		due_time TIMESTAMP NULL,
		last_smtp_code INTEGER,
		last_smtp_message TEXT,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

func primaryKeyClause() string {
	switch {
	case IsMySQL():
		return "INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case IsPostgreSQL():
		return "SERIAL PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// EnsureSchema creates the communication tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	pk := primaryKeyClause()
	for _, stmt := range commTables {
		ddl := strings.ReplaceAll(stmt, "{{pk}}", pk)
		if IsPostgreSQL() {
			ddl = strings.ReplaceAll(ddl, "BLOB", "BYTEA")
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

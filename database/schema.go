package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Schema contains the tables owned by the incident service.
const Schema = `
CREATE TABLE IF NOT EXISTS reports (
    id CHAR(36) PRIMARY KEY,
    location TEXT NOT NULL,
    description TEXT NOT NULL,
    photo MEDIUMTEXT,
    submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    reporter_name VARCHAR(256) NOT NULL DEFAULT '',
    reporter_email VARCHAR(320) NOT NULL DEFAULT '',
    status ENUM('Pending', 'Completed', 'Scheduled', 'ExternalHelpNeeded') NOT NULL DEFAULT 'Pending',
    INDEX idx_reports_submitted_at (submitted_at)
);

CREATE TABLE IF NOT EXISTS staff (
    email VARCHAR(320) PRIMARY KEY,
    name VARCHAR(256) NOT NULL,
    password_hash VARCHAR(256) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);
`

// InitializeSchema creates the database schema
func InitializeSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Database schema initialized successfully")
	return nil
}

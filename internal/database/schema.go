package database

import (
	"strings"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

const scriptsTable = `CREATE TABLE IF NOT EXISTS scripts (
	id CHAR(36) PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	author_name VARCHAR(255) NOT NULL,
	author_email VARCHAR(255) NOT NULL,
	author_phone VARCHAR(64) NOT NULL DEFAULT '',
	file_name VARCHAR(255) NOT NULL DEFAULT '',
	file_url VARCHAR(1024) NOT NULL DEFAULT '',
	file_key VARCHAR(512) NOT NULL DEFAULT '',
	page_count INT NOT NULL DEFAULT 0,
	amount_cents BIGINT NOT NULL DEFAULT 0,
	tier_id VARCHAR(64) NOT NULL DEFAULT '',
	tier_name VARCHAR(64) NOT NULL DEFAULT '',
	tier_description VARCHAR(512) NOT NULL DEFAULT '',
	payment_status ENUM('pending','paid') NOT NULL DEFAULT 'pending',
	status ENUM('pending','assigned','reviewed','approved','declined') NOT NULL DEFAULT 'pending',
	assigned_judge_id CHAR(36) NULL,
	checkout_session_id VARCHAR(255) NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	reviewed_at DATETIME NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_scripts_checkout (checkout_session_id),
	KEY idx_scripts_judge (assigned_judge_id),
	KEY idx_scripts_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const judgesTable = `CREATE TABLE IF NOT EXISTS judges (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	status ENUM('pending','approved','suspended') NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_judges_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const applicationsTable = `CREATE TABLE IF NOT EXISTS contractor_applications (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(64) NOT NULL DEFAULT '',
	experience TEXT NOT NULL,
	portfolio_url VARCHAR(1024) NOT NULL DEFAULT '',
	status ENUM('pending','approved','rejected') NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_applications_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const pageNotesTable = `CREATE TABLE IF NOT EXISTS script_page_notes (
	id CHAR(36) PRIMARY KEY,
	review_id CHAR(36) NOT NULL,
	page_number INT NOT NULL,
	note TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_page_notes (review_id, page_number),
	CONSTRAINT fk_page_notes_review FOREIGN KEY (review_id) REFERENCES script_reviews(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const notificationsTable = `CREATE TABLE IF NOT EXISTS notifications (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	kind VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	body TEXT NOT NULL,
	script_id CHAR(36) NULL,
	is_read TINYINT(1) NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_notifications_unread (is_read, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const refreshTokensTable = `CREATE TABLE IF NOT EXISTS refresh_tokens (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	subject VARCHAR(255) NOT NULL,
	role VARCHAR(32) NOT NULL,
	token_hash CHAR(64) NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_refresh_hash (token_hash),
	KEY idx_refresh_subject (subject)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Schema returns the CREATE statements in dependency order.
func Schema() []string {
	reviews := `CREATE TABLE IF NOT EXISTS script_reviews (
	id CHAR(36) PRIMARY KEY,
	script_id CHAR(36) NOT NULL,
	judge_id CHAR(36) NOT NULL,
	status ENUM('in_progress','completed') NOT NULL DEFAULT 'in_progress',
	recommendation ENUM('approved','declined','consider') NULL,
	overall_notes TEXT NULL,
` + rubricDDL() + `	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	submitted_at DATETIME NULL,
	UNIQUE KEY uq_reviews_script (script_id),
	CONSTRAINT fk_reviews_script FOREIGN KEY (script_id) REFERENCES scripts(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	pageRubrics := `CREATE TABLE IF NOT EXISTS script_page_rubrics (
	id CHAR(36) PRIMARY KEY,
	review_id CHAR(36) NOT NULL,
	page_number INT NOT NULL,
` + rubricDDL() + `	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_page_rubrics (review_id, page_number),
	CONSTRAINT fk_page_rubrics_review FOREIGN KEY (review_id) REFERENCES script_reviews(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	return []string{
		scriptsTable,
		judgesTable,
		applicationsTable,
		reviews,
		pageRubrics,
		pageNotesTable,
		notificationsTable,
		refreshTokensTable,
	}
}

// rubricDDL declares one nullable column per rubric field.
func rubricDDL() string {
	var b strings.Builder
	for _, col := range rubric.Columns() {
		b.WriteString("\t")
		b.WriteString(col)
		if strings.HasSuffix(col, "_rating") {
			b.WriteString(" TINYINT NULL,\n")
		} else {
			b.WriteString(" TEXT NULL,\n")
		}
	}
	return b.String()
}

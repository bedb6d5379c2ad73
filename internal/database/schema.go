package database

import (
	"context"
	"database/sql"
	"fmt"
)

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"refresh_tokens", `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT UNSIGNED NOT NULL,
	token_hash CHAR(64) NOT NULL UNIQUE,
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_refresh_user (user_id),
	CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"movies", `
CREATE TABLE IF NOT EXISTS movies (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	poster_url VARCHAR(512) NULL,
	duration_min INT NOT NULL,
	created_at DATETIME NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"screenings", `
CREATE TABLE IF NOT EXISTS screenings (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	movie_id BIGINT UNSIGNED NOT NULL,
	theater VARCHAR(255) NOT NULL,
	room VARCHAR(64) NOT NULL,
	starts_at DATETIME NOT NULL,
	base_price BIGINT NOT NULL,
	seat_rows INT NOT NULL,
	seat_cols INT NOT NULL,
	KEY idx_screenings_starts (starts_at),
	CONSTRAINT fk_screenings_movie FOREIGN KEY (movie_id) REFERENCES movies(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"promotions", `
CREATE TABLE IF NOT EXISTS promotions (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	discount_amount BIGINT NOT NULL DEFAULT 0,
	discount_percent INT NOT NULL DEFAULT 0,
	expires_at DATETIME NULL,
	active TINYINT(1) NOT NULL DEFAULT 1
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"seat_states", `
CREATE TABLE IF NOT EXISTS seat_states (
	screening_id BIGINT UNSIGNED NOT NULL,
	label VARCHAR(8) NOT NULL,
	status ENUM('available','reserved','booked') NOT NULL,
	reserved_at DATETIME NULL,
	held_by BIGINT UNSIGNED NULL,
	booking_id CHAR(36) NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (screening_id, label),
	KEY idx_seat_states_expiry (status, reserved_at),
	CONSTRAINT fk_seat_states_screening FOREIGN KEY (screening_id) REFERENCES screenings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id CHAR(36) PRIMARY KEY,
	user_id BIGINT UNSIGNED NOT NULL,
	screening_id BIGINT UNSIGNED NOT NULL,
	seats TEXT NOT NULL,
	base_price BIGINT NOT NULL,
	discount BIGINT NOT NULL DEFAULT 0,
	total_price BIGINT NOT NULL,
	status ENUM('pending','paid','failed','cancelled') NOT NULL,
	promo_code VARCHAR(64) NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_bookings_user (user_id, created_at),
	KEY idx_bookings_status (status, created_at),
	CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id),
	CONSTRAINT fk_bookings_screening FOREIGN KEY (screening_id) REFERENCES screenings(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"approval_requests", `
CREATE TABLE IF NOT EXISTS approval_requests (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	kind VARCHAR(16) NOT NULL,
	payload TEXT NOT NULL,
	submitted_by BIGINT UNSIGNED NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	note VARCHAR(512) NULL,
	decided_by BIGINT UNSIGNED NULL,
	decided_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	KEY idx_approvals_status (status, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates any missing table.  Existing tables are left as they
// are, so it is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

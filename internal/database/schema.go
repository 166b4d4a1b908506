package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order at startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL COLLATE utf8mb4_general_ci,
		password_hash VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NULL,
		first_name    VARCHAR(100) NULL,
		last_name     VARCHAR(100) NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_token_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS pings (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id        BIGINT UNSIGNED NOT NULL,
		latitude       VARCHAR(32) NOT NULL,
		longitude      VARCHAR(32) NOT NULL,
		message        MEDIUMTEXT NULL,
		parent_ping_id BIGINT UNSIGNED NULL,
		created_at     DATETIME(6) NOT NULL,
		KEY idx_pings_user_created (user_id, created_at),
		KEY idx_pings_parent (parent_ping_id),
		CONSTRAINT fk_pings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_pings_parent FOREIGN KEY (parent_ping_id) REFERENCES pings (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables used by the service if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the core schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255) NOT NULL,
					phone VARCHAR(64),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					last_login_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_email ON users(email);
			`,
		},
		{
			Version:     2,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(16) NOT NULL,
					name VARCHAR(255) NOT NULL,
					expires_at TIMESTAMPTZ,
					last_used_at TIMESTAMPTZ,
					revoked_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_api_tokens_user_id ON api_tokens(user_id);
				CREATE INDEX idx_api_tokens_token_hash ON api_tokens(token_hash);
			`,
		},
		{
			Version:     3,
			Description: "Create companies table",
			SQL: `
				CREATE TABLE IF NOT EXISTS companies (
					id UUID PRIMARY KEY,
					owner_id UUID NOT NULL REFERENCES users(id),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					description TEXT,
					phone VARCHAR(64),
					email VARCHAR(255),
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					logo_key VARCHAR(512),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_companies_owner_id ON companies(owner_id);
				CREATE INDEX idx_companies_slug ON companies(slug);
				CREATE INDEX idx_companies_created_at_id ON companies(created_at, id);
			`,
		},
		{
			Version:     4,
			Description: "Create locations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS locations (
					id UUID PRIMARY KEY,
					company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					address VARCHAR(512),
					phone VARCHAR(64),
					email VARCHAR(255),
					latitude DOUBLE PRECISION,
					longitude DOUBLE PRECISION,
					working_hours JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_locations_company_id ON locations(company_id);
				CREATE INDEX idx_locations_created_at_id ON locations(created_at, id);
			`,
		},
		{
			Version:     5,
			Description: "Create subscriptions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS subscriptions (
					id UUID PRIMARY KEY,
					company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id),
					type VARCHAR(32) NOT NULL,
					name VARCHAR(255) NOT NULL,
					price BIGINT NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					starts_at TIMESTAMPTZ NOT NULL,
					expires_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_subscriptions_company_id ON subscriptions(company_id);
				CREATE INDEX idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX idx_subscriptions_expires_at ON subscriptions(expires_at);
				CREATE INDEX idx_subscriptions_created_at_id ON subscriptions(created_at, id);
			`,
		},
		{
			Version:     6,
			Description: "Create pricing_plans table",
			SQL: `
				CREATE TABLE IF NOT EXISTS pricing_plans (
					id UUID PRIMARY KEY,
					company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					created_by UUID NOT NULL REFERENCES users(id),
					name VARCHAR(255) NOT NULL,
					price BIGINT NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					starts_at TIMESTAMPTZ NOT NULL,
					ends_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_pricing_plans_company_id ON pricing_plans(company_id);
				CREATE INDEX idx_pricing_plans_ends_at ON pricing_plans(ends_at);
			`,
		},
		{
			Version:     7,
			Description: "Create notifications table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					body TEXT NOT NULL DEFAULT '',
					seen_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_notifications_user_id ON notifications(user_id);
				CREATE INDEX idx_notifications_seen_at ON notifications(seen_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read migration versions: %w", err)
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

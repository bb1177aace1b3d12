package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS processed_tickets (
		id              BIGSERIAL PRIMARY KEY,
		ticket_no       TEXT NOT NULL,
		date_happen     TIMESTAMPTZ,
		fine_amount     TEXT,
		license_plate   TEXT,
		location        TEXT,
		offense         TEXT,
		paid_status     TEXT,
		limit_speed     TEXT,
		speed           TEXT,
		lane            TEXT,
		order_division  TEXT,
		order_name      TEXT,
		image_count     INT NOT NULL DEFAULT 0,
		image_files     JSONB,
		raw_detail      JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_processed_tickets_ticket_no ON processed_tickets(ticket_no);`,
	`CREATE INDEX IF NOT EXISTS idx_processed_tickets_date_happen ON processed_tickets(date_happen);`,
	`CREATE INDEX IF NOT EXISTS idx_processed_tickets_created_at ON processed_tickets(created_at);`,
}

// Open connects to the archive database and applies the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

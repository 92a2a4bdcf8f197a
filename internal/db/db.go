package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/yourorg/kharkivmetro/internal/config"
)

// Connect opens a MariaDB/MySQL pool and checks it answers.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return db, nil
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS metro_lines (
		id VARCHAR(64) PRIMARY KEY,
		name_ua VARCHAR(128) NOT NULL,
		name_en VARCHAR(128) NOT NULL,
		color VARCHAR(16) NOT NULL,
		sort_order INT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_stations (
		id VARCHAR(64) PRIMARY KEY,
		name_ua VARCHAR(128) NOT NULL,
		name_en VARCHAR(128) NOT NULL,
		sort_order INT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_line_stations (
		line_id VARCHAR(64) NOT NULL,
		station_id VARCHAR(64) NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (line_id, position),
		UNIQUE KEY uq_line_station (line_id, station_id),
		FOREIGN KEY (line_id) REFERENCES metro_lines(id) ON DELETE CASCADE,
		FOREIGN KEY (station_id) REFERENCES metro_stations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_aliases (
		alias VARCHAR(128) PRIMARY KEY,
		station_id VARCHAR(64) NOT NULL,
		FOREIGN KEY (station_id) REFERENCES metro_stations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_interchanges (
		station_a VARCHAR(64) NOT NULL,
		station_b VARCHAR(64) NOT NULL,
		PRIMARY KEY (station_a, station_b),
		FOREIGN KEY (station_a) REFERENCES metro_stations(id) ON DELETE CASCADE,
		FOREIGN KEY (station_b) REFERENCES metro_stations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_timetable (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		from_station VARCHAR(64) NOT NULL,
		to_station VARCHAR(64) NOT NULL,
		line_id VARCHAR(64) NOT NULL,
		day_type VARCHAR(16) NOT NULL,
		departure_min INT NOT NULL,
		duration_min INT NOT NULL,
		UNIQUE KEY uq_departure (from_station, to_station, day_type, departure_min),
		KEY idx_timetable_day (day_type)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS metro_refreshes (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		day_type VARCHAR(16) NOT NULL,
		rows_written INT NOT NULL,
		refreshed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the metro tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB, skip bool) error {
	if skip {
		log.Printf("[DB] EnsureSchema: skipped by configuration")
		return nil
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			name := strings.Fields(strings.TrimPrefix(stmt, "CREATE TABLE IF NOT EXISTS "))[0]
			return fmt.Errorf("db: create %s: %w", name, err)
		}
	}
	return nil
}

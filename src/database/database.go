package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/equitytracker/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens (or creates) the sqlite database backing the price cache and
// ensures its schema. One row per (symbol, date) closing price.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		close REAL NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, date)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created:", databasePath)
	}
}

// Package database opens the sqlx connection and keeps the schema current.
// Queries elsewhere are written with ? placeholders and rebound through
// sqlx per driver; the DDL differences between the supported engines are
// confined to the dialect table here.
package database

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects with the configured driver and applies the schema. sqlite3
// is the default; postgres and mysql are selectable by DSN for deployments
// that outgrow a single file.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = "sqlite3"
	}
	if driver == "sqlite3" && !strings.Contains(dsn, "_fk=") {
		// go-sqlite3 leaves foreign keys off unless asked.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_fk=true"
	}
	if driver == "mysql" && !strings.Contains(dsn, "parseTime") {
		// The mysql driver returns []byte for DATETIME unless asked to parse.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenTest returns an isolated in-memory sqlite database with the schema
// applied. The shared cache keeps the database alive across the connections
// in the pool; the random name isolates tests from each other.
func OpenTest() (*sqlx.DB, error) {
	return Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

// dialect holds the DDL fragments that differ between the supported
// engines. Everything else in the schema is written in the common subset:
// VARCHAR for keyed columns (MySQL cannot index bare TEXT), TRUE/FALSE for
// boolean defaults, no engine-specific column options.
type dialect struct {
	// serialPK declares an auto-incrementing integer primary key.
	serialPK string
	// timestamp is the column type for points in time. MySQL's TIMESTAMP
	// carries a 2038 range limit and auto-update behavior, so it gets
	// DATETIME instead.
	timestamp string
	// indexIfNotExists is false where CREATE INDEX cannot take IF NOT
	// EXISTS and duplicate-index errors are ignored instead.
	indexIfNotExists bool
}

func dialectFor(driver string) dialect {
	switch driver {
	case "postgres":
		return dialect{serialPK: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMP", indexIfNotExists: true}
	case "mysql":
		return dialect{serialPK: "BIGINT PRIMARY KEY AUTO_INCREMENT", timestamp: "DATETIME", indexIfNotExists: false}
	default:
		return dialect{serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "TIMESTAMP", indexIfNotExists: true}
	}
}

// Schema returns the DDL statements for the given driver in apply order.
func Schema(driver string) []string {
	d := dialectFor(driver)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		password_hash VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		reset_token VARCHAR(36),
		reset_expires %[1]s,
		created_at %[1]s NOT NULL
	)`, d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS requests (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		priority VARCHAR(16) NOT NULL DEFAULT 'medium',
		category VARCHAR(16) NOT NULL DEFAULT 'other',
		status VARCHAR(16) NOT NULL DEFAULT 'open',
		created_by VARCHAR(36) NOT NULL REFERENCES users(id),
		assigned_to VARCHAR(36) REFERENCES users(id),
		remark TEXT NOT NULL,
		due_date %[1]s NOT NULL,
		overdue_notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at %[1]s NOT NULL,
		updated_at %[1]s NOT NULL
	)`, d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS request_history (
		id %s,
		request_id VARCHAR(36) NOT NULL REFERENCES requests(id),
		action VARCHAR(32) NOT NULL,
		by_id VARCHAR(36) NOT NULL,
		by_name VARCHAR(255) NOT NULL,
		by_role VARCHAR(16) NOT NULL,
		remark TEXT NOT NULL,
		at %s NOT NULL
	)`, d.serialPK, d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS notifications (
		id %s,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id),
		request_id VARCHAR(36) NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at %s NOT NULL
	)`, d.serialPK, d.timestamp),
	}

	ine := ""
	if d.indexIfNotExists {
		ine = "IF NOT EXISTS "
	}
	for _, idx := range [][2]string{
		{"idx_requests_created_by", "requests(created_by)"},
		{"idx_requests_assigned_to", "requests(assigned_to)"},
		{"idx_history_request", "request_history(request_id)"},
		{"idx_notifications_user", "notifications(user_id)"},
	} {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s%s ON %s", ine, idx[0], idx[1]))
	}
	return stmts
}

// Migrate applies the schema for the connection's driver and normalizes any
// rows still carrying the legacy pending/approved status vocabulary.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range Schema(db.DriverName()) {
		if _, err := db.Exec(stmt); err != nil {
			if isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	if _, err := db.Exec(`UPDATE requests SET status = 'open' WHERE status = 'pending'`); err != nil {
		return fmt.Errorf("migrating legacy statuses: %w", err)
	}
	if _, err := db.Exec(`UPDATE requests SET status = 'resolved' WHERE status = 'approved'`); err != nil {
		return fmt.Errorf("migrating legacy statuses: %w", err)
	}
	return nil
}

// isDuplicateIndex recognizes MySQL's re-run error for CREATE INDEX, which
// has no IF NOT EXISTS form there.
func isDuplicateIndex(err error) bool {
	return strings.Contains(err.Error(), "Duplicate key name")
}

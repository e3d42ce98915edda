// internal/db/db.go
package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a Postgres pool and verifies it with a ping.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(60 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

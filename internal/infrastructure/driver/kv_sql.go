package driver

import (
	"context"
	"fmt"
)

// SQLKeyValue KeyValueDB backed by a single two-column table
type SQLKeyValue struct {
	Conn    ISQLDB
	dialect string
}

var _ KeyValueDB = &SQLKeyValue{}

// NewSQLKeyValue create a SQLKeyValue, dialect is either postgres or mysql
func NewSQLKeyValue(conn ISQLDB, dialect string) *SQLKeyValue {
	return &SQLKeyValue{Conn: conn, dialect: dialect}
}

// Migrate create the backing table if missing
func (kv *SQLKeyValue) Migrate(ctx context.Context) error {
	valueType := "TEXT"
	if kv.dialect == "mysql" {
		valueType = "LONGTEXT"
	}
	_, err := kv.Conn.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS kv_store (
    k VARCHAR(191) NOT NULL PRIMARY KEY,
    v %s NOT NULL
)`, valueType))
	return err
}

// Get implement KeyValueDB
func (kv *SQLKeyValue) Get(ctx context.Context, key string) (string, error) {
	rows, err := kv.Conn.QueryContext(ctx, `SELECT v FROM kv_store WHERE k = $1`, key)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if !rows.Next() {
		// a failed read also stops iteration, it must not pass for a missing key
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", ErrNil
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

// Set implement KeyValueDB
func (kv *SQLKeyValue) Set(ctx context.Context, key string, value string) error {
	_, err := kv.Conn.ExecContext(ctx, upsertStatement(kv.dialect), key, value)
	return err
}

// Ping implement KeyValueDB
func (kv *SQLKeyValue) Ping(ctx context.Context) error {
	return kv.Conn.Ping(ctx)
}

// Close implement KeyValueDB
func (kv *SQLKeyValue) Close() error {
	return kv.Conn.Close(context.Background())
}

func upsertStatement(dialect string) string {
	if dialect == "mysql" {
		return `
INSERT INTO kv_store(k, v)
VALUES($1, $2)
ON DUPLICATE KEY UPDATE v = VALUES(v)`
	}
	return `
INSERT INTO kv_store(k, v)
VALUES($1, $2)
ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`
}

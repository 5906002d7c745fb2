package driver

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSQLDB records statements and serves a single-table key-value map
type fakeSQLDB struct {
	execs   []string
	data    map[string]string
	readErr error
}

type fakeRows struct {
	values []interface{}
	read   bool
	err    error
}

func (r *fakeRows) Next() bool {
	if r.read || len(r.values) == 0 || r.err != nil {
		return false
	}
	r.read = true
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	switch d := dest[0].(type) {
	case *string:
		*d = r.values[0].(string)
	case *int64:
		*d = r.values[0].(int64)
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() error { return nil }

func (f *fakeSQLDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.execs = append(f.execs, query)
	if len(args) == 2 {
		f.data[args[0].(string)] = args[1].(string)
	}
	return nil, nil
}

func (f *fakeSQLDB) QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error) {
	if f.readErr != nil {
		return &fakeRows{err: f.readErr}, nil
	}
	v, ok := f.data[args[0].(string)]
	if !ok {
		return &fakeRows{}, nil
	}
	return &fakeRows{values: []interface{}{v}}, nil
}

func (f *fakeSQLDB) Close(ctx context.Context) error { return nil }

func (f *fakeSQLDB) Ping(ctx context.Context) error { return nil }

func TestSQLKeyValue(t *testing.T) {
	db := &fakeSQLDB{data: make(map[string]string)}
	kv := NewSQLKeyValue(db, "postgres")
	require.NoError(t, kv.Migrate(context.Background()))
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS kv_store")
	assert.Contains(t, db.execs[0], "v TEXT NOT NULL")

	testKeyValueDB(t, kv)
	assert.Contains(t, db.execs[1], "ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v")
}

func TestSQLKeyValueReadFailureIsNotMissingKey(t *testing.T) {
	db := &fakeSQLDB{data: map[string]string{"learning_paths": "[]"}, readErr: errors.New("read tcp: connection reset by peer")}
	kv := NewSQLKeyValue(db, "postgres")

	_, err := kv.Get(context.Background(), "learning_paths")
	assert.EqualError(t, err, "read tcp: connection reset by peer")
	assert.NotErrorIs(t, err, ErrNil)
}

func TestSQLKeyValueOverDatabaseSQL(t *testing.T) {
	db, err := sql.Open(resetDriverName, "")
	require.NoError(t, err)
	kv := NewSQLKeyValue(&SQLWrapper{db: db, logger: zap.NewNop()}, "mysql")
	defer kv.Close()

	_, err = kv.Get(context.Background(), "learning_paths")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNil)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestSQLKeyValueMySQLDialect(t *testing.T) {
	db := &fakeSQLDB{data: make(map[string]string)}
	kv := NewSQLKeyValue(db, "mysql")
	require.NoError(t, kv.Migrate(context.Background()))
	assert.Contains(t, db.execs[0], "LONGTEXT")

	require.NoError(t, kv.Set(context.Background(), "learning_paths", "[]"))
	assert.Contains(t, db.execs[1], "ON DUPLICATE KEY UPDATE v = VALUES(v)")
}

func TestMySQLAdapter(t *testing.T) {
	got := mysqlAdapter(`SELECT v
	FROM "kv_store" WHERE k = $1 AND v = $2`)
	assert.Equal(t, "SELECT v FROM `kv_store` WHERE k = ? AND v = ?", got)
}

func TestGetDSN(t *testing.T) {
	assert.Equal(t, "root:secret@tcp(127.0.0.1:3306)/learnpath?parseTime=true", getDSN(&DBConfig{
		User: "root", Password: "secret", Protocol: "tcp", Host: "127.0.0.1", Port: 3306,
		Schema: "learnpath", Query: "parseTime=true",
	}))
	assert.Equal(t, "postgres:secret@localhost:5432/learnpath", getDSN(&DBConfig{
		User: "postgres", Password: "secret", Host: "localhost", Port: 5432, Schema: "learnpath",
	}))
}

func TestLogQueryArgs(t *testing.T) {
	long := make([]byte, 80)
	args := logQueryArgs([]interface{}{"short", long, 42})
	assert.Equal(t, "short", args[0])
	assert.Contains(t, args[1], "(truncated 16 bytes)")
	assert.Equal(t, 42, args[2])
}

package driver

import (
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"io"
)

// resetDriverName database/sql driver whose result rows fail on the first read
const resetDriverName = "learnpath-reset"

func init() {
	sql.Register(resetDriverName, resetDriver{})
}

type resetDriver struct{}

func (resetDriver) Open(name string) (sqldriver.Conn, error) { return resetConn{}, nil }

type resetConn struct{}

func (resetConn) Prepare(query string) (sqldriver.Stmt, error) { return resetStmt{}, nil }
func (resetConn) Close() error                                  { return nil }
func (resetConn) Begin() (sqldriver.Tx, error)                  { return nil, errors.New("not supported") }

type resetStmt struct{}

func (resetStmt) Close() error  { return nil }
func (resetStmt) NumInput() int { return -1 }
func (resetStmt) Exec(args []sqldriver.Value) (sqldriver.Result, error) {
	return sqldriver.RowsAffected(0), nil
}
func (resetStmt) Query(args []sqldriver.Value) (sqldriver.Rows, error) { return &resetRows{}, nil }

type resetRows struct{ failed bool }

func (r *resetRows) Columns() []string { return []string{"v"} }
func (r *resetRows) Close() error      { return nil }
func (r *resetRows) Next(dest []sqldriver.Value) error {
	if r.failed {
		return io.EOF
	}
	r.failed = true
	return errors.New("read tcp 127.0.0.1:3306: connection reset by peer")
}

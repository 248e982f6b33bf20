package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// fakeDB はdatabase/sqlのdriver層を差し替えるテスト用の疑似DB。
// 発行されたSQLと引数をすべて記録し、queryFn / execFn で応答を差し替える。
// 実DBなしでScanの型変換（NULL列の扱いを含む）とSQLの中身を検証できる。
type fakeDB struct {
	mu    sync.Mutex
	calls []fakeCall

	// queryFn はQueryRowContext / QueryContextへの応答を返す。
	// 未設定の場合は空の結果（0行）を返す。
	queryFn func(query string, args []driver.Value) (*fakeRows, error)

	// execFn はExecContextへの応答を返す。
	// 未設定の場合は1行更新の成功を返す。
	execFn func(query string, args []driver.Value) (driver.Result, error)
}

type fakeCall struct {
	query string
	args  []driver.Value
}

// openFakeDB は疑似ドライバを接続した*sql.DBを返す。
func openFakeDB(f *fakeDB) *sql.DB {
	return sql.OpenDB(&fakeConnector{db: f})
}

func (f *fakeDB) record(query string, args []driver.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{query: query, args: args})
}

// recordedCalls は記録済みの呼び出しのコピーを返す。
func (f *fakeDB) recordedCalls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

type fakeConnector struct {
	db *fakeDB
}

func (c *fakeConnector) Connect(ctx context.Context) (driver.Conn, error) {
	return &fakeConn{db: c.db}, nil
}

func (c *fakeConnector) Driver() driver.Driver {
	return fakeDriver{db: c.db}
}

type fakeDriver struct {
	db *fakeDB
}

func (d fakeDriver) Open(name string) (driver.Conn, error) {
	return &fakeConn{db: d.db}, nil
}

// fakeConn はQueryerContext / ExecerContextを実装し、Prepareを経由させない。
type fakeConn struct {
	db *fakeDB
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare is not supported by fakeConn")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *fakeConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.db.record("BEGIN", nil)
	return &fakeTx{db: c.db}, nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, named []driver.NamedValue) (driver.Rows, error) {
	args := namedToValues(named)
	c.db.record(query, args)
	if c.db.queryFn == nil {
		return &fakeRows{}, nil
	}
	rows, err := c.db.queryFn(query, args)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return &fakeRows{}, nil
	}
	return rows, nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, named []driver.NamedValue) (driver.Result, error) {
	args := namedToValues(named)
	c.db.record(query, args)
	if c.db.execFn == nil {
		return fakeResult{rowsAffected: 1}, nil
	}
	return c.db.execFn(query, args)
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Commit() error {
	t.db.record("COMMIT", nil)
	return nil
}

func (t *fakeTx) Rollback() error {
	t.db.record("ROLLBACK", nil)
	return nil
}

// fakeRows はスクリプトされた行集合。NULL列はnilのdriver.Valueで表す。
type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

type fakeResult struct {
	rowsAffected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

func (r fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

func namedToValues(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}

// Package testutil provides an in-memory stub database understanding the
// fixed SQL statements issued by the postgres simulation store.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Row mirrors one simulations table row.
type Row struct {
	Version int64
	Owner   string
	Payload []byte
}

// StubConn records statements and keeps the simulations table in memory.
type StubConn struct {
	mu       sync.Mutex
	Rows     map[string]Row
	Execs    []string
	FailPing bool
	FailExec bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string]Row)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("not implemented") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO SIMULATIONS"):
		id := args[0].Value.(string)
		if _, exists := c.Rows[id]; exists {
			return nil, fmt.Errorf("duplicate key %s", id)
		}
		c.Rows[id] = Row{
			Version: args[1].Value.(int64),
			Owner:   args[2].Value.(string),
			Payload: append([]byte(nil), args[3].Value.([]byte)...),
		}
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "UPDATE SIMULATIONS"):
		id := args[3].Value.(string)
		expected := args[4].Value.(int64)
		row, exists := c.Rows[id]
		if !exists || row.Version != expected {
			return driver.RowsAffected(0), nil
		}
		c.Rows[id] = Row{
			Version: args[0].Value.(int64),
			Owner:   args[1].Value.(string),
			Payload: append([]byte(nil), args[2].Value.([]byte)...),
		}
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM SIMULATIONS"):
		id := args[0].Value.(string)
		if _, exists := c.Rows[id]; !exists {
			return driver.RowsAffected(0), nil
		}
		delete(c.Rows, id)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("unexpected exec: %s", query)
	}
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "SELECT VERSION, PAYLOAD"):
		id := args[0].Value.(string)
		row, exists := c.Rows[id]
		if !exists {
			return &stubRows{cols: []string{"version", "payload"}}, nil
		}
		return &stubRows{
			cols: []string{"version", "payload"},
			rows: [][]driver.Value{{row.Version, append([]byte(nil), row.Payload...)}},
		}, nil
	case strings.HasPrefix(upper, "SELECT PAYLOAD"):
		ids := make([]string, 0, len(c.Rows))
		for id := range c.Rows {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		values := make([][]driver.Value, 0, len(ids))
		for _, id := range ids {
			values = append(values, []driver.Value{append([]byte(nil), c.Rows[id].Payload...)})
		}
		return &stubRows{cols: []string{"payload"}, rows: values}, nil
	default:
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

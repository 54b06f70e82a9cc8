package sink

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS styles (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	class TEXT NOT NULL UNIQUE,
	body  TEXT NOT NULL
);`

// Store persists mounted styles in SQLite database, one row per class name.
// Use ":memory:" path for transient store.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
}

// OpenStore opens (creating if necessary) style database at path.
func OpenStore(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate}
	if path == ":memory:" {
		flags = append(flags, sqlite.OpenMemory)
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open style database %q: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, storeSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare style database %q: %w", path, err)
	}
	return &Store{conn: conn, log: log.Named("store-sink")}, nil
}

// Mount inserts style row.
func (s *Store) Mount(className, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `INSERT INTO styles (class, body) VALUES (?, ?) ON CONFLICT (class) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{className, text}})
	if err != nil {
		return fmt.Errorf("unable to store style %s: %w", className, err)
	}
	if s.conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyMounted, className)
	}
	s.log.Debug("Style stored", zap.String("class", className))
	return nil
}

// Unmount deletes style row.
func (s *Store) Unmount(className string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `DELETE FROM styles WHERE class = ?`,
		&sqlitex.ExecOptions{Args: []any{className}})
	if err != nil {
		return fmt.Errorf("unable to delete style %s: %w", className, err)
	}
	if s.conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNotMounted, className)
	}
	s.log.Debug("Style deleted", zap.String("class", className))
	return nil
}

// Entries returns stored styles in mount order.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []Entry
	err := sqlitex.Execute(s.conn, `SELECT class, body FROM styles ORDER BY seq`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, Entry{ClassName: stmt.ColumnText(0), Text: stmt.ColumnText(1)})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to list styles: %w", err)
	}
	return entries, nil
}

// Close closes database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}

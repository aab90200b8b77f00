package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const sessionKey = "last_scan"

// Store persists analysis records for the most recent scan.
type Store interface {
	// Init creates the schema if it does not exist.
	Init() error
	// Clear removes every record. Called once at the start of a scan.
	Clear() error
	// Insert writes one record and returns its ID.
	Insert(r Record) (int64, error)
	// SelectAll returns every record in insertion order.
	SelectAll() ([]Record, error)
	// SelectByFile returns the records of one file in insertion order.
	SelectByFile(path string) ([]Record, error)
	// ListFiles aggregates records per file, ordered by first insertion.
	ListFiles() ([]FileSummary, error)
	// Count returns the number of stored records.
	Count() (int, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open(DriverName, dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps writes ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if err := Init(s.db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM audit_chunks"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(r Record) (int64, error) {
	vulns, err := encodeList(r.Vulnerabilities)
	if err != nil {
		return 0, err
	}
	recs, err := encodeList(r.Recommendations)
	if err != nil {
		return 0, err
	}
	deps, err := encodeList(r.Dependencies)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`
		INSERT INTO audit_chunks (
			file, chunk_name, chunk_type, start_line, end_line,
			summary, vulnerabilities, recommendations, dependencies, parent_module
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.File, r.ChunkName, r.ChunkType, r.StartLine, r.EndLine,
		r.Summary, vulns, recs, deps, r.ParentModule,
	)
	if err != nil {
		return 0, fmt.Errorf("insert record %s:%s: %w", r.File, r.ChunkName, err)
	}
	return res.LastInsertId()
}

const selectColumns = `SELECT id, file, chunk_name, chunk_type, start_line, end_line,
	summary, vulnerabilities, recommendations, dependencies, parent_module
	FROM audit_chunks`

func (s *SQLiteStore) SelectAll() ([]Record, error) {
	return s.query(selectColumns + " ORDER BY id")
}

func (s *SQLiteStore) SelectByFile(path string) ([]Record, error) {
	return s.query(selectColumns+" WHERE file = ? ORDER BY id", path)
}

func (s *SQLiteStore) query(q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r                 Record
			summary, parent   sql.NullString
			vulns, recs, deps sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.File, &r.ChunkName, &r.ChunkType, &r.StartLine, &r.EndLine,
			&summary, &vulns, &recs, &deps, &parent,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Summary = summary.String
		r.ParentModule = parent.String
		if r.Vulnerabilities, err = decodeList(vulns); err != nil {
			return nil, fmt.Errorf("record %d vulnerabilities: %w", r.ID, err)
		}
		if r.Recommendations, err = decodeList(recs); err != nil {
			return nil, fmt.Errorf("record %d recommendations: %w", r.ID, err)
		}
		if r.Dependencies, err = decodeList(deps); err != nil {
			return nil, fmt.Errorf("record %d dependencies: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListFiles() ([]FileSummary, error) {
	rows, err := s.db.Query(`
		SELECT file, COUNT(*),
		       SUM(CASE WHEN vulnerabilities NOT IN ('', '[]') THEN 1 ELSE 0 END)
		FROM audit_chunks
		GROUP BY file
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileSummary
	for rows.Next() {
		var f FileSummary
		if err := rows.Scan(&f.Path, &f.Chunks, &f.Vulnerabilities); err != nil {
			return nil, fmt.Errorf("scan file summary: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession records the scan session in the meta table.
func SaveSession(s Store, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.SetMeta(sessionKey, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the last recorded scan session. ok is false when no
// scan has been recorded.
func LoadSession(s Store) (sess Session, ok bool, err error) {
	raw, err := s.GetMeta(sessionKey)
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	if raw == "" {
		return Session{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

func encodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(v sql.NullString) ([]string, error) {
	if !v.Valid || v.String == "" {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(v.String), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

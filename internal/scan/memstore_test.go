package scan

import (
	"errors"

	"vulnviper/internal/store"
)

// memStore is an in-memory store.Store. failInsertAt makes the n-th Insert
// (1-based) fail.
type memStore struct {
	records      []store.Record
	meta         map[string]string
	inserts      int
	failInsertAt int
	clearErr     error
}

var _ store.Store = (*memStore)(nil)

func (m *memStore) Init() error { return nil }

func (m *memStore) Clear() error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.records = nil
	return nil
}

func (m *memStore) Insert(r store.Record) (int64, error) {
	m.inserts++
	if m.failInsertAt > 0 && m.inserts == m.failInsertAt {
		return 0, errors.New("database is locked")
	}
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, r)
	return r.ID, nil
}

func (m *memStore) SelectAll() ([]store.Record, error) {
	return append([]store.Record(nil), m.records...), nil
}

func (m *memStore) SelectByFile(path string) ([]store.Record, error) {
	var out []store.Record
	for _, r := range m.records {
		if r.File == path {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListFiles() ([]store.FileSummary, error) {
	var out []store.FileSummary
	idx := map[string]int{}
	for _, r := range m.records {
		i, ok := idx[r.File]
		if !ok {
			i = len(out)
			idx[r.File] = i
			out = append(out, store.FileSummary{Path: r.File})
		}
		out[i].Chunks++
		if r.Vulnerable() {
			out[i].Vulnerabilities++
		}
	}
	return out, nil
}

func (m *memStore) Count() (int, error) { return len(m.records), nil }

func (m *memStore) GetMeta(key string) (string, error) { return m.meta[key], nil }

func (m *memStore) SetMeta(key, value string) error {
	if m.meta == nil {
		m.meta = map[string]string{}
	}
	m.meta[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

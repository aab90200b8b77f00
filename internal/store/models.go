package store

import "time"

// Record is the persisted outcome of analyzing exactly one sub-chunk. The
// list fields are never nil once loaded from the store.
type Record struct {
	ID              int64    `json:"-" yaml:"-" toml:"-"`
	File            string   `json:"file" yaml:"file" toml:"file"`
	ChunkName       string   `json:"chunk_name" yaml:"chunk_name" toml:"chunk_name"`
	ChunkType       string   `json:"chunk_type" yaml:"chunk_type" toml:"chunk_type"`
	StartLine       int      `json:"start_line" yaml:"start_line" toml:"start_line"`
	EndLine         int      `json:"end_line" yaml:"end_line" toml:"end_line"`
	Summary         string   `json:"summary" yaml:"summary" toml:"summary"`
	Vulnerabilities []string `json:"vulnerabilities" yaml:"vulnerabilities" toml:"vulnerabilities"`
	Recommendations []string `json:"recommendations" yaml:"recommendations" toml:"recommendations"`
	Dependencies    []string `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	ParentModule    string   `json:"parent_module" yaml:"parent_module" toml:"parent_module"`
}

// Vulnerable reports whether the record lists at least one finding.
func (r Record) Vulnerable() bool {
	return len(r.Vulnerabilities) > 0
}

// Session describes the most recent scan written to the store.
type Session struct {
	ID           string    `json:"id" yaml:"id" toml:"id"`
	Root         string    `json:"root" yaml:"root" toml:"root"`
	Provider     string    `json:"provider" yaml:"provider" toml:"provider"`
	Model        string    `json:"model" yaml:"model" toml:"model"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at" toml:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty" toml:"finished_at,omitempty"`
	FilesScanned int       `json:"files_scanned" yaml:"files_scanned" toml:"files_scanned"`
	FilesSkipped int       `json:"files_skipped" yaml:"files_skipped" toml:"files_skipped"`
	Records      int       `json:"records" yaml:"records" toml:"records"`
	Failures     int       `json:"failures" yaml:"failures" toml:"failures"`
}

// FileSummary aggregates the records of one file.
type FileSummary struct {
	Path            string `json:"path"`
	Chunks          int    `json:"chunks"`
	Vulnerabilities int    `json:"vulnerabilities"`
}

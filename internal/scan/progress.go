package scan

// Phase is the orchestrator's position in a scan.
type Phase int

const (
	PhaseSelecting Phase = iota
	PhaseParsing
	PhaseSplitting
	PhaseAnalyzing
	PhaseRecording
	PhaseReporting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseSelecting:
		return "Selecting files"
	case PhaseParsing:
		return "Parsing"
	case PhaseSplitting:
		return "Splitting"
	case PhaseAnalyzing:
		return "Analyzing"
	case PhaseRecording:
		return "Recording"
	case PhaseReporting:
		return "Writing report"
	case PhaseDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Event reports scan progress. File and Chunk are empty outside the
// per-file phases.
type Event struct {
	Phase      Phase
	File       string
	Chunk      string
	FilesDone  int
	FilesTotal int
	Stats      Stats
}

// ProgressFunc receives events synchronously on the scanning goroutine.
type ProgressFunc func(Event)

package session

import (
	"time"
)

// Phase is the session's own lifecycle state, distinct from per-stage status.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseStreaming
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether the phase is completed or failed.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// StageStatus is the state of one backend pipeline stage.
type StageStatus int

const (
	StagePending StageStatus = iota
	StageRunning
	StageCompleted
	StageFailed
)

func (s StageStatus) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageRunning:
		return "running"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return ""
	}
}

// ParseStageStatus maps backend agent-state strings ("Idle", "Running",
// "Completed", "Failed" and their lowercase status forms) to a StageStatus.
func ParseStageStatus(s string) (StageStatus, bool) {
	switch s {
	case "Idle", "idle", "pending":
		return StagePending, true
	case "Running", "running":
		return StageRunning, true
	case "Completed", "completed":
		return StageCompleted, true
	case "Failed", "failed":
		return StageFailed, true
	default:
		return StagePending, false
	}
}

// StageIDs is the fixed ordered list of backend pipeline stages.
var StageIDs = []string{"ingestor", "parser", "context_analyzer", "summarizer", "generator", "filebuilder"}

// StageDescriptions maps stage identifiers to display descriptions.
var StageDescriptions = map[string]string{
	"ingestor":         "Ingesting VB6 project files from ZIP or GitHub",
	"parser":           "Parsing VB6 code to extract procedures and events",
	"context_analyzer": "Analyzing application context and workflow",
	"summarizer":       "Summarizing parsed data for code generation",
	"generator":        "Generating .NET 9 Worker Service code",
	"filebuilder":      "Building and packaging the .NET project ZIP",
}

// Stage is one pipeline step's tracked state. Progress is meaningful only
// while the stage is running.
type Stage struct {
	ID       string
	Status   StageStatus
	Progress int
}

// LogEntry is one line of the session log. Immutable once appended; ordering
// is arrival order.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Stage     string
	Agent     string
}

// Result is the terminal output of a successful conversion.
type Result struct {
	ConversionID string
	DownloadURL  string
	Duration     float64
}

// Session is the authoritative in-memory state of one conversion attempt.
//
// Owned exclusively by the [Controller]; mutators perform no I/O and are the
// only writes. OverallProgress is monotonically non-decreasing within a
// session and phase transitions are one-directional until Reset.
// ConversionID holds the backend's id as soon as any channel supplies it,
// independent of the terminal Result, so status polls can target the
// conversion while it is still in flight.
type Session struct {
	ID              string
	Input           Input
	Phase           Phase
	OverallProgress int
	Stages          []Stage
	Log             []LogEntry
	CurrentAgent    string
	ConversionID    string
	Result          *Result
	Err             string
	StartedAt       time.Time
}

// New creates an idle Session for the given input with all stages pending.
func New(input Input) *Session {
	return &Session{
		Input:  input,
		Phase:  PhaseIdle,
		Stages: pendingStages(),
	}
}

func pendingStages() []Stage {
	stages := make([]Stage, len(StageIDs))
	for i, id := range StageIDs {
		stages[i] = Stage{ID: id, Status: StagePending}
	}
	return stages
}

// AppendLog appends an entry to the session log.
func (s *Session) AppendLog(e LogEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.Log = append(s.Log, e)
}

// UpdateStage patches the named stage. Unknown stage identifiers are ignored
// and reported via the false return so the caller can log a warning instead
// of failing.
func (s *Session) UpdateStage(id string, status StageStatus, progress int) bool {
	for i := range s.Stages {
		if s.Stages[i].ID == id {
			s.Stages[i].Status = status
			s.Stages[i].Progress = clampProgress(progress)
			return true
		}
	}
	return false
}

// SetOverallProgress raises the overall progress, clamped to [0, 100].
// Regressions are ignored.
func (s *Session) SetOverallProgress(n int) {
	n = clampProgress(n)
	if n > s.OverallProgress {
		s.OverallProgress = n
	}
}

// SetPhase moves the session to the given phase.
func (s *Session) SetPhase(p Phase) {
	s.Phase = p
}

// SetResult attaches the conversion result.
func (s *Session) SetResult(r *Result) {
	s.Result = r
}

// SetError records a failure message. An existing result is kept; a session
// may hold a partial result alongside a failure flag.
func (s *Session) SetError(msg string) {
	s.Err = msg
}

// Reset returns the session to a fresh idle state: empty log, pending
// stages, zero progress, no result or error. The input selection is kept so
// the user can resubmit.
func (s *Session) Reset() {
	s.Phase = PhaseIdle
	s.OverallProgress = 0
	s.Stages = pendingStages()
	s.Log = nil
	s.CurrentAgent = ""
	s.ConversionID = ""
	s.Result = nil
	s.Err = ""
	s.StartedAt = time.Time{}
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Stages = make([]Stage, len(s.Stages))
	copy(cp.Stages, s.Stages)
	cp.Log = make([]LogEntry, len(s.Log))
	copy(cp.Log, s.Log)
	if s.Result != nil {
		r := *s.Result
		cp.Result = &r
	}
	return cp
}

func clampProgress(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

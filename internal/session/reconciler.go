package session

import (
	"time"

	"github.com/desertthunder/convx/internal/services"
)

// pipelineStage is the stage identifier carried by terminal events.
const pipelineStage = "pipeline"

// Reconciler merges inbound events and snapshots into a [Session] and owns
// its phase transitions.
//
// The reconciler performs no I/O. It tolerates events arriving before the
// submission response and vice versa, and terminal transitions are
// idempotent: whichever channel reports completion first wins and later
// reports are no-ops.
type Reconciler struct {
	s *Session
}

// NewReconciler wraps the given session.
func NewReconciler(s *Session) *Reconciler {
	return &Reconciler{s: s}
}

// Session exposes the underlying session for snapshotting.
func (r *Reconciler) Session() *Session {
	return r.s
}

// Submit moves an idle (or terminal) session into submitting, clearing prior
// session state.
func (r *Reconciler) Submit(input Input) {
	r.s.Reset()
	r.s.Input = input
	r.s.Phase = PhaseSubmitting
	r.s.StartedAt = time.Now()
}

// StreamOpened marks the event channel as established.
func (r *Reconciler) StreamOpened() {
	if r.s.Phase == PhaseSubmitting {
		r.s.Phase = PhaseStreaming
	}
}

// ApplyEvent folds one streamed event into the session.
//
// state_update events update overall progress and the named stage and are
// appended to the log; log events are appended only; pings carry no state.
// Unknown event types are appended tagged as unrecognized and never change
// the phase.
func (r *Reconciler) ApplyEvent(ev services.Event) {
	switch ev.Type {
	case services.EventStateUpdate:
		r.applyStateUpdate(ev)
	case services.EventLog:
		r.s.AppendLog(entryFromEvent(ev))
	case services.EventPing:
		// liveness only, handled by the controller's stall timer
	default:
		e := entryFromEvent(ev)
		e.Level = "WARN"
		e.Message = "unrecognized event " + ev.Type + ": " + ev.Message
		r.s.AppendLog(e)
	}
}

func (r *Reconciler) applyStateUpdate(ev services.Event) {
	r.s.SetOverallProgress(ev.Progress)
	if ev.CurrentAgent != "" {
		r.s.CurrentAgent = ev.CurrentAgent
	}

	if ev.Stage == pipelineStage {
		switch ev.State {
		case "Completed":
			r.complete(nil)
		case "Failed":
			r.fail(ev.Message)
		}
		r.s.AppendLog(entryFromEvent(ev))
		return
	}

	if status, ok := ParseStageStatus(ev.State); ok && ev.Stage != "" {
		progress := stageProgress(status)
		if !r.s.UpdateStage(ev.Stage, status, progress) {
			r.s.AppendLog(LogEntry{
				Level:   "WARN",
				Message: "ignoring update for unknown stage " + ev.Stage,
				Stage:   ev.Stage,
			})
		}
	}

	r.s.AppendLog(entryFromEvent(ev))
}

// ApplySnapshot folds a polled status snapshot into the session.
//
// Merges are idempotent: progress never regresses and a terminal phase is
// sticky. A snapshot with every stage completed counts as completion; any
// failed stage counts as failure.
func (r *Reconciler) ApplySnapshot(snap services.StatusSnapshot) {
	r.s.SetOverallProgress(snap.OverallProgress)

	allCompleted := len(snap.Steps) > 0
	failedStage := ""
	for id, step := range snap.Steps {
		status, ok := ParseStageStatus(step.Status)
		if !ok {
			// a step we cannot read rules out terminal inference
			allCompleted = false
			r.s.AppendLog(LogEntry{
				Level:   "WARN",
				Message: "ignoring malformed status " + step.Status + " for stage " + id,
				Stage:   id,
			})
			continue
		}
		r.s.UpdateStage(id, status, step.Progress)
		if status != StageCompleted {
			allCompleted = false
		}
		if status == StageFailed {
			failedStage = id
		}
	}

	if failedStage != "" {
		r.fail("stage " + failedStage + " failed")
		return
	}
	if allCompleted {
		r.complete(nil)
	}
}

// SubmissionAccepted records a successful POST /convert response.
//
// The submission endpoint is synchronous, so a successful response is
// authoritative: it completes the session even if the terminal stream event
// was missed. If the stream already completed the session, only the result
// is attached.
func (r *Reconciler) SubmissionAccepted(sub *services.Submission) {
	if r.s.ConversionID == "" {
		r.s.ConversionID = sub.ConversionID
	}
	result := &Result{
		ConversionID: sub.ConversionID,
		DownloadURL:  sub.DownloadURL,
		Duration:     sub.Duration,
	}
	r.complete(result)
	if r.s.Result == nil {
		r.s.SetResult(result)
	}
}

// SubmissionFailed records a failed submission.
func (r *Reconciler) SubmissionFailed(err error) {
	r.fail(err.Error())
}

// Reset returns the model to idle and clears all session state.
func (r *Reconciler) Reset() {
	r.s.Reset()
}

// complete moves the session to completed exactly once.
func (r *Reconciler) complete(result *Result) {
	if r.s.Phase.Terminal() {
		return
	}
	r.s.SetPhase(PhaseCompleted)
	r.s.SetOverallProgress(100)
	for i := range r.s.Stages {
		r.s.Stages[i].Status = StageCompleted
		r.s.Stages[i].Progress = 100
	}
	if result != nil {
		r.s.SetResult(result)
	}
}

// fail moves the session to failed exactly once. A result recorded earlier is
// kept.
func (r *Reconciler) fail(msg string) {
	if r.s.Phase.Terminal() {
		return
	}
	r.s.SetPhase(PhaseFailed)
	r.s.SetError(msg)
}

func entryFromEvent(ev services.Event) LogEntry {
	return LogEntry{
		Timestamp: timestampFromEvent(ev),
		Level:     ev.Level,
		Message:   ev.Message,
		Stage:     ev.Stage,
		Agent:     ev.Agent,
	}
}

func timestampFromEvent(ev services.Event) time.Time {
	if ev.Timestamp == 0 {
		return time.Now()
	}
	sec := int64(ev.Timestamp)
	nsec := int64((ev.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// stageProgress derives a stage progress value for streamed updates, which
// carry only overall progress. Polled snapshots overwrite this with the real
// per-stage value.
func stageProgress(status StageStatus) int {
	if status == StageCompleted {
		return 100
	}
	return 0
}

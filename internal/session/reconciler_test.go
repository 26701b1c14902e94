package session

import (
	"errors"
	"testing"

	"github.com/desertthunder/convx/internal/services"
)

func stateUpdate(stage, state string, progress int) services.Event {
	return services.Event{
		Type:     services.EventStateUpdate,
		Stage:    stage,
		State:    state,
		Progress: progress,
		Message:  stage + " " + state,
	}
}

func TestReconciler(t *testing.T) {
	t.Run("Submit", func(t *testing.T) {
		s := New(Input{})
		s.AppendLog(LogEntry{Message: "stale"})
		s.SetOverallProgress(80)
		r := NewReconciler(s)

		r.Submit(RepoInput("https://github.com/a/b"))

		if s.Phase != PhaseSubmitting {
			t.Errorf("expected submitting, got %s", s.Phase)
		}
		if len(s.Log) != 0 || s.OverallProgress != 0 {
			t.Error("expected prior session state cleared")
		}
		if s.Input.Kind != InputRepo {
			t.Errorf("expected repo input, got %s", s.Input.Kind)
		}
		if s.StartedAt.IsZero() {
			t.Error("expected StartedAt set")
		}
	})

	t.Run("StreamOpened", func(t *testing.T) {
		s := New(Input{})
		r := NewReconciler(s)
		r.Submit(Input{})

		r.StreamOpened()
		if s.Phase != PhaseStreaming {
			t.Errorf("expected streaming, got %s", s.Phase)
		}
	})

	t.Run("ApplyEvent", func(t *testing.T) {
		t.Run("state update advances stage and progress", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(stateUpdate("parser", "Running", 25))

			if s.OverallProgress != 25 {
				t.Errorf("expected progress 25, got %d", s.OverallProgress)
			}
			if s.Stages[1].Status != StageRunning {
				t.Errorf("expected parser running, got %s", s.Stages[1].Status)
			}
			if len(s.Log) != 1 {
				t.Errorf("expected state update appended to log, got %d entries", len(s.Log))
			}
		})

		t.Run("pipeline completed is terminal", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(stateUpdate("pipeline", "Completed", 100))

			if s.Phase != PhaseCompleted {
				t.Errorf("expected completed, got %s", s.Phase)
			}
			if s.OverallProgress != 100 {
				t.Errorf("expected progress 100, got %d", s.OverallProgress)
			}
			for _, stage := range s.Stages {
				if stage.Status != StageCompleted {
					t.Errorf("stage %s should be completed", stage.ID)
				}
			}
		})

		t.Run("pipeline failed records message", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			ev := stateUpdate("pipeline", "Failed", 60)
			ev.Message = "generator crashed"
			r.ApplyEvent(ev)

			if s.Phase != PhaseFailed {
				t.Errorf("expected failed, got %s", s.Phase)
			}
			if s.Err != "generator crashed" {
				t.Errorf("expected failure message, got %q", s.Err)
			}
		})

		t.Run("duplicate terminal event is a no-op", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(stateUpdate("pipeline", "Completed", 100))
			r.ApplyEvent(stateUpdate("pipeline", "Failed", 100))

			if s.Phase != PhaseCompleted {
				t.Errorf("expected completion to stick, got %s", s.Phase)
			}
			if s.Err != "" {
				t.Errorf("expected no error after late failure event, got %q", s.Err)
			}
		})

		t.Run("unknown stage logs a warning", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(stateUpdate("linker", "Running", 10))

			if s.Phase != PhaseStreaming {
				t.Errorf("expected streaming to continue, got %s", s.Phase)
			}
			if len(s.Log) < 1 || s.Log[0].Level != "WARN" {
				t.Error("expected warning entry for unknown stage")
			}
		})

		t.Run("log and state updates keep arrival order", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(services.Event{Type: services.EventLog, Message: "starting parser"})
			r.ApplyEvent(stateUpdate("parser", "Running", 20))
			r.ApplyEvent(services.Event{Type: services.EventLog, Message: "parser done"})

			want := []string{"starting parser", "parser Running", "parser done"}
			if len(s.Log) != len(want) {
				t.Fatalf("expected %d log entries, got %d", len(want), len(s.Log))
			}
			for i, msg := range want {
				if s.Log[i].Message != msg {
					t.Errorf("log[%d]: expected %q, got %q", i, msg, s.Log[i].Message)
				}
			}
		})

		t.Run("ping carries no state", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(services.Event{Type: services.EventPing})

			if len(s.Log) != 0 || s.Phase != PhaseStreaming {
				t.Error("expected ping to leave session untouched")
			}
		})

		t.Run("unknown event type is logged and dropped", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplyEvent(services.Event{Type: "telemetry", Message: "noise"})

			if s.Phase != PhaseStreaming {
				t.Errorf("expected phase unchanged, got %s", s.Phase)
			}
			if len(s.Log) != 1 || s.Log[0].Level != "WARN" {
				t.Error("expected a single warning entry")
			}
		})
	})

	t.Run("ApplySnapshot", func(t *testing.T) {
		t.Run("merges step states", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplySnapshot(services.StatusSnapshot{
				OverallProgress: 40,
				Steps: map[string]services.StepStatus{
					"ingestor": {Status: "completed", Progress: 100},
					"parser":   {Status: "running", Progress: 35},
				},
			})

			if s.OverallProgress != 40 {
				t.Errorf("expected progress 40, got %d", s.OverallProgress)
			}
			if s.Stages[0].Status != StageCompleted {
				t.Errorf("expected ingestor completed, got %s", s.Stages[0].Status)
			}
			if s.Stages[1].Status != StageRunning || s.Stages[1].Progress != 35 {
				t.Errorf("unexpected parser state: %+v", s.Stages[1])
			}
		})

		t.Run("progress never regresses", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()
			r.ApplyEvent(stateUpdate("parser", "Running", 50))

			r.ApplySnapshot(services.StatusSnapshot{OverallProgress: 30})

			if s.OverallProgress != 50 {
				t.Errorf("expected 50, got %d", s.OverallProgress)
			}
		})

		t.Run("all completed steps finish the session", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			steps := make(map[string]services.StepStatus)
			for _, id := range StageIDs {
				steps[id] = services.StepStatus{Status: "completed", Progress: 100}
			}
			r.ApplySnapshot(services.StatusSnapshot{OverallProgress: 100, Steps: steps})

			if s.Phase != PhaseCompleted {
				t.Errorf("expected completed, got %s", s.Phase)
			}
		})

		t.Run("failed step fails the session", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplySnapshot(services.StatusSnapshot{
				OverallProgress: 70,
				Steps: map[string]services.StepStatus{
					"generator": {Status: "failed", Progress: 70},
				},
			})

			if s.Phase != PhaseFailed {
				t.Errorf("expected failed, got %s", s.Phase)
			}
			if s.Err == "" {
				t.Error("expected failure message set")
			}
		})

		t.Run("malformed step statuses are logged and never complete the session", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.ApplySnapshot(services.StatusSnapshot{
				OverallProgress: 60,
				Steps: map[string]services.StepStatus{
					"parser": {Status: "definitely-not-a-status", Progress: 60},
				},
			})

			if s.Phase != PhaseStreaming {
				t.Errorf("expected session to keep streaming, got %s", s.Phase)
			}
			if s.Stages[1].Status != StagePending {
				t.Errorf("expected parser untouched, got %s", s.Stages[1].Status)
			}
			if len(s.Log) != 1 || s.Log[0].Level != "WARN" {
				t.Fatalf("expected one WARN log entry, got %+v", s.Log)
			}
		})
	})

	t.Run("SubmissionAccepted", func(t *testing.T) {
		t.Run("completes the session", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()

			r.SubmissionAccepted(&services.Submission{
				ConversionID: "conv-1",
				DownloadURL:  "/download/conv-1",
				Duration:     12.5,
			})

			if s.Phase != PhaseCompleted {
				t.Errorf("expected completed, got %s", s.Phase)
			}
			if s.Result == nil || s.Result.ConversionID != "conv-1" {
				t.Fatalf("expected result attached, got %+v", s.Result)
			}
			if s.ConversionID != "conv-1" {
				t.Errorf("expected conversion id recorded on the session, got %q", s.ConversionID)
			}
		})

		t.Run("attaches result after stream completion", func(t *testing.T) {
			s := New(Input{})
			r := NewReconciler(s)
			r.Submit(Input{})
			r.StreamOpened()
			r.ApplyEvent(stateUpdate("pipeline", "Completed", 100))

			r.SubmissionAccepted(&services.Submission{ConversionID: "conv-2"})

			if s.Result == nil || s.Result.ConversionID != "conv-2" {
				t.Fatalf("expected result attached after terminal event, got %+v", s.Result)
			}
		})
	})

	t.Run("SubmissionFailed", func(t *testing.T) {
		s := New(Input{})
		r := NewReconciler(s)
		r.Submit(Input{})

		r.SubmissionFailed(errors.New("upload rejected"))

		if s.Phase != PhaseFailed {
			t.Errorf("expected failed, got %s", s.Phase)
		}
		if s.Err != "upload rejected" {
			t.Errorf("expected error message, got %q", s.Err)
		}
	})

	t.Run("Reset From Any Phase", func(t *testing.T) {
		for _, phase := range []Phase{PhaseSubmitting, PhaseStreaming, PhaseCompleted, PhaseFailed} {
			t.Run(phase.String(), func(t *testing.T) {
				s := New(Input{})
				r := NewReconciler(s)
				r.Submit(Input{})
				r.StreamOpened()
				r.ApplyEvent(services.Event{Type: services.EventLog, Message: "one"})
				r.ApplyEvent(services.Event{Type: services.EventLog, Message: "two"})
				r.ApplyEvent(services.Event{Type: services.EventLog, Message: "three"})
				s.SetPhase(phase)

				r.Reset()

				if s.Phase != PhaseIdle {
					t.Errorf("expected idle after reset, got %s", s.Phase)
				}
				if len(s.Log) != 0 {
					t.Errorf("expected empty log after reset, got %d", len(s.Log))
				}
			})
		}
	})
}

package session

import (
	"testing"
	"time"
)

func TestSession(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		s := New(RepoInput("https://github.com/a/b"))

		if s.Phase != PhaseIdle {
			t.Errorf("expected phase idle, got %s", s.Phase)
		}
		if len(s.Stages) != len(StageIDs) {
			t.Fatalf("expected %d stages, got %d", len(StageIDs), len(s.Stages))
		}
		for i, stage := range s.Stages {
			if stage.ID != StageIDs[i] {
				t.Errorf("stage %d: expected id %s, got %s", i, StageIDs[i], stage.ID)
			}
			if stage.Status != StagePending {
				t.Errorf("stage %s: expected pending, got %s", stage.ID, stage.Status)
			}
		}
	})

	t.Run("SetOverallProgress", func(t *testing.T) {
		t.Run("clamps to range", func(t *testing.T) {
			s := New(Input{})

			s.SetOverallProgress(150)
			if s.OverallProgress != 100 {
				t.Errorf("expected 100, got %d", s.OverallProgress)
			}

			s2 := New(Input{})
			s2.SetOverallProgress(-5)
			if s2.OverallProgress != 0 {
				t.Errorf("expected 0, got %d", s2.OverallProgress)
			}
		})

		t.Run("never decreases", func(t *testing.T) {
			s := New(Input{})
			s.SetOverallProgress(60)
			s.SetOverallProgress(40)

			if s.OverallProgress != 60 {
				t.Errorf("expected progress to stay at 60, got %d", s.OverallProgress)
			}
		})

		t.Run("non-decreasing sequence lands on last value", func(t *testing.T) {
			s := New(Input{})
			for _, p := range []int{5, 17, 17, 42, 88, 100} {
				s.SetOverallProgress(p)
			}
			if s.OverallProgress != 100 {
				t.Errorf("expected 100, got %d", s.OverallProgress)
			}
		})
	})

	t.Run("UpdateStage", func(t *testing.T) {
		t.Run("known stage", func(t *testing.T) {
			s := New(Input{})

			if !s.UpdateStage("parser", StageRunning, 30) {
				t.Fatal("expected update to succeed")
			}
			if s.Stages[1].Status != StageRunning || s.Stages[1].Progress != 30 {
				t.Errorf("unexpected parser state: %+v", s.Stages[1])
			}
		})

		t.Run("unknown stage ignored", func(t *testing.T) {
			s := New(Input{})

			if s.UpdateStage("linker", StageRunning, 30) {
				t.Error("expected update of unknown stage to be rejected")
			}
			for _, stage := range s.Stages {
				if stage.Status != StagePending {
					t.Errorf("stage %s should stay pending", stage.ID)
				}
			}
		})
	})

	t.Run("SetError Keeps Result", func(t *testing.T) {
		s := New(Input{})
		s.SetResult(&Result{ConversionID: "conv-1"})
		s.SetError("something broke")

		if s.Result == nil {
			t.Error("expected result to survive SetError")
		}
		if s.Err != "something broke" {
			t.Errorf("expected error message set, got %q", s.Err)
		}
	})

	t.Run("AppendLog Preserves Arrival Order", func(t *testing.T) {
		s := New(Input{})
		now := time.Now()

		// timestamps deliberately out of order; arrival order must win
		s.AppendLog(LogEntry{Timestamp: now.Add(time.Hour), Message: "first"})
		s.AppendLog(LogEntry{Timestamp: now.Add(-time.Hour), Message: "second"})
		s.AppendLog(LogEntry{Timestamp: now, Message: "third"})

		want := []string{"first", "second", "third"}
		for i, entry := range s.Log {
			if entry.Message != want[i] {
				t.Errorf("log[%d]: expected %s, got %s", i, want[i], entry.Message)
			}
		}
	})

	t.Run("Reset", func(t *testing.T) {
		s := New(FileInput("/tmp/app.zip"))
		s.SetPhase(PhaseStreaming)
		s.SetOverallProgress(70)
		s.UpdateStage("parser", StageCompleted, 100)
		s.AppendLog(LogEntry{Message: "one"})
		s.AppendLog(LogEntry{Message: "two"})
		s.AppendLog(LogEntry{Message: "three"})
		s.SetResult(&Result{ConversionID: "conv-1"})
		s.SetError("boom")

		s.Reset()

		if s.Phase != PhaseIdle {
			t.Errorf("expected idle after reset, got %s", s.Phase)
		}
		if len(s.Log) != 0 {
			t.Errorf("expected empty log after reset, got %d entries", len(s.Log))
		}
		if s.OverallProgress != 0 {
			t.Errorf("expected progress 0 after reset, got %d", s.OverallProgress)
		}
		if s.Result != nil || s.Err != "" {
			t.Error("expected result and error cleared after reset")
		}
		for _, stage := range s.Stages {
			if stage.Status != StagePending {
				t.Errorf("stage %s should be pending after reset", stage.ID)
			}
		}
	})

	t.Run("Snapshot Is Independent", func(t *testing.T) {
		s := New(Input{})
		s.AppendLog(LogEntry{Message: "original"})

		snap := s.Snapshot()
		s.AppendLog(LogEntry{Message: "after snapshot"})
		s.UpdateStage("ingestor", StageRunning, 10)

		if len(snap.Log) != 1 {
			t.Errorf("snapshot log should have 1 entry, got %d", len(snap.Log))
		}
		if snap.Stages[0].Status != StagePending {
			t.Error("snapshot stages should be unaffected by later updates")
		}
	})
}

func TestParseStageStatus(t *testing.T) {
	cases := []struct {
		in   string
		want StageStatus
		ok   bool
	}{
		{"Running", StageRunning, true},
		{"running", StageRunning, true},
		{"Completed", StageCompleted, true},
		{"Failed", StageFailed, true},
		{"Idle", StagePending, true},
		{"pending", StagePending, true},
		{"What", StagePending, false},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseStageStatus(tc.in)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ParseStageStatus(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

package trace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestSubAgentCalls(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/subagents" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"calls": [
			{"id": "t1", "tool": "Bash", "prompt": "ls", "completed": true},
			{"id": "t2", "tool": "Task", "prompt": "explore", "completed": false}
		]}`))
	})

	calls, err := client.SubAgentCalls(context.Background(), "s1")
	if err != nil {
		t.Fatalf("SubAgentCalls failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Tool != "Bash" || !calls[0].Completed {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[1].Completed {
		t.Error("second call should be incomplete")
	}
}

func TestToolHistory(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/timeline" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"timeline": [{"id": "t1", "tool": "Edit", "started_at": "2026-03-14T10:00:00Z"}]}`))
	})

	calls, err := client.ToolHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ToolHistory failed: %v", err)
	}
	if len(calls) != 1 || calls[0].Tool != "Edit" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestRetro(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"session": {"session_id": "s1", "drift_score": 0.2, "convergence_score": 0.8, "thrash_score": 0.1},
			"judgment": {"outcome": "completed", "outcome_confidence": 0.9,
				"outcome_reasoning": "task finished", "prompt_clarity": 0.7, "prompt_completeness": 0.6},
			"narrative": {"narrative": "A tidy session."}
		}`))
	})

	retro, err := client.Retro(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Retro failed: %v", err)
	}
	if retro.DriftScore != 0.2 || retro.ConvergenceScore != 0.8 {
		t.Errorf("scores = %+v", retro)
	}
	if retro.Judgment == nil || retro.Judgment.Outcome != models.OutcomeCompleted {
		t.Errorf("judgment = %+v", retro.Judgment)
	}
	if retro.Narrative != "A tidy session." {
		t.Errorf("narrative = %q", retro.Narrative)
	}
}

func TestRetro_NotAnalyzed(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.Retro(context.Background(), "s1")
	if !errors.Is(err, ErrNotAnalyzed) {
		t.Errorf("err = %v, want ErrNotAnalyzed", err)
	}
}

func TestRetro_MissingJudgmentAndNarrative(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"session": {"drift_score": 0.5}}`))
	})

	retro, err := client.Retro(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Retro failed: %v", err)
	}
	if retro.Judgment != nil {
		t.Error("judgment should be nil when the judge has not run")
	}
	if retro.SessionID != "s1" {
		t.Errorf("SessionID = %q, want fallback to the requested id", retro.SessionID)
	}
}

func TestGetJSON_ServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.SubAgentCalls(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrNotAnalyzed) {
		t.Error("500 must not map to ErrNotAnalyzed")
	}
}

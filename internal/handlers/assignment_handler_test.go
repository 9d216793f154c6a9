package handlers

import (
	"net/http"
	"testing"

	"github.com/freelancehub/freelancehub-backend/internal/models"
)

// acceptBid drives the normal path to an in_progress assignment.
func (e *testEnv) acceptBid(t *testing.T, owner models.User, bid models.Bid) models.Assignment {
	t.Helper()

	resp := e.doRequest(t, http.MethodPatch, "/api/bids/"+bid.ID.String()+"/status", map[string]any{
		"status": "accepted",
	}, e.token(t, owner))
	wantStatus(t, resp, http.StatusOK)

	var assignment models.Assignment
	if err := e.db.First(&assignment, "task_id = ?", bid.TaskID).Error; err != nil {
		t.Fatalf("assignment after acceptance: %v", err)
	}
	return assignment
}

func TestCompleteAssignmentCompletesTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.employer, "Completion flow")
	bid := env.placeBid(t, env.freelancer, task.ID.String(), 100)
	assignment := env.acceptBid(t, env.employer, bid)

	resp := env.doRequest(t, http.MethodPatch, "/api/assignments/"+assignment.ID.String()+"/status", map[string]any{
		"status": "completed",
	}, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusOK)

	var updated models.Assignment
	decodeData(t, resp, &updated)
	if updated.Status != models.AssignmentCompleted {
		t.Errorf("assignment status = %s, want completed", updated.Status)
	}

	var reloaded models.Task
	env.db.First(&reloaded, "id = ?", task.ID)
	if reloaded.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", reloaded.Status)
	}
}

func TestAssignmentTerminalStates(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.employer, "Terminal states")
	bid := env.placeBid(t, env.freelancer, task.ID.String(), 100)
	assignment := env.acceptBid(t, env.employer, bid)
	path := "/api/assignments/" + assignment.ID.String() + "/status"
	empToken := env.token(t, env.employer)

	resp := env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "disputed"}, empToken)
	wantStatus(t, resp, http.StatusOK)

	// leaving a terminal state is refused
	resp = env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "in_progress"}, empToken)
	wantStatus(t, resp, http.StatusConflict)
	resp = env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "completed"}, empToken)
	wantStatus(t, resp, http.StatusConflict)

	// re-asserting the same terminal state is a no-op success
	resp = env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "disputed"}, empToken)
	wantStatus(t, resp, http.StatusOK)
}

func TestAssignmentPartiesOnly(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, env.employer, "Party check")
	bid := env.placeBid(t, env.freelancer, task.ID.String(), 100)
	assignment := env.acceptBid(t, env.employer, bid)
	path := "/api/assignments/" + assignment.ID.String() + "/status"

	resp := env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "completed"}, env.token(t, env.freelancer2))
	wantStatus(t, resp, http.StatusForbidden)

	resp = env.doRequest(t, http.MethodPatch, path, map[string]any{"status": "paused"}, env.token(t, env.employer))
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestListMyAssignments(t *testing.T) {
	env := setupTestEnv(t)

	t1 := env.createTask(t, env.employer, "A1")
	t2 := env.createTask(t, env.employer, "A2")
	env.acceptBid(t, env.employer, env.placeBid(t, env.freelancer, t1.ID.String(), 10))
	env.acceptBid(t, env.employer, env.placeBid(t, env.freelancer2, t2.ID.String(), 20))

	resp := env.doRequest(t, http.MethodGet, "/api/assignments/me", nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusOK)

	var mine []models.Assignment
	decodeData(t, resp, &mine)
	if len(mine) != 1 {
		t.Fatalf("freelancer sees %d assignments, want 1", len(mine))
	}

	resp = env.doRequest(t, http.MethodGet, "/api/assignments/me", nil, env.token(t, env.employer))
	wantStatus(t, resp, http.StatusOK)
	decodeData(t, resp, &mine)
	if len(mine) != 2 {
		t.Fatalf("employer sees %d assignments, want 2", len(mine))
	}
}

package handlers

import (
	"net/http"
	"testing"

	"github.com/freelancehub/freelancehub-backend/internal/models"
)

func TestNotificationsListAndMarkRead(t *testing.T) {
	env := setupTestEnv(t)

	// a bid produces a notification for the task owner
	task := env.createTask(t, env.employer, "Notify me")
	env.placeBid(t, env.freelancer, task.ID.String(), 42)

	empToken := env.token(t, env.employer)
	resp := env.doRequest(t, http.MethodGet, "/api/notifications/me", nil, empToken)
	wantStatus(t, resp, http.StatusOK)

	var list []models.Notification
	decodeData(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	n := list[0]
	if n.IsRead {
		t.Error("fresh notification already marked read")
	}
	if n.RelatedEntityType != models.EntityBid {
		t.Errorf("related entity type = %q, want %q", n.RelatedEntityType, models.EntityBid)
	}

	path := "/api/notifications/" + n.ID.String() + "/read"
	resp = env.doRequest(t, http.MethodPatch, path, nil, empToken)
	wantStatus(t, resp, http.StatusOK)

	var marked models.Notification
	decodeData(t, resp, &marked)
	if !marked.IsRead {
		t.Error("notification not marked read")
	}

	// marking twice stays a success
	resp = env.doRequest(t, http.MethodPatch, path, nil, empToken)
	wantStatus(t, resp, http.StatusOK)
}

func TestMarkReadForeignNotificationIs404(t *testing.T) {
	env := setupTestEnv(t)

	task := env.createTask(t, env.employer, "Not yours")
	env.placeBid(t, env.freelancer, task.ID.String(), 42)

	var n models.Notification
	if err := env.db.First(&n, "user_id = ?", env.employer.ID).Error; err != nil {
		t.Fatalf("expected a notification for the employer: %v", err)
	}

	// another user's id resolves to 404, not 403, to avoid leaking existence
	resp := env.doRequest(t, http.MethodPatch, "/api/notifications/"+n.ID.String()+"/read", nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusNotFound)

	var reloaded models.Notification
	env.db.First(&reloaded, "id = ?", n.ID)
	if reloaded.IsRead {
		t.Error("foreign request flipped is_read")
	}
}

func TestNotificationsScopedToCaller(t *testing.T) {
	env := setupTestEnv(t)

	task := env.createTask(t, env.employer, "Scoping")
	env.placeBid(t, env.freelancer, task.ID.String(), 10)
	env.placeBid(t, env.freelancer2, task.ID.String(), 20)

	resp := env.doRequest(t, http.MethodGet, "/api/notifications/me", nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusOK)

	var list []models.Notification
	decodeData(t, resp, &list)
	if len(list) != 0 {
		t.Fatalf("freelancer sees %d notifications, want 0", len(list))
	}
}

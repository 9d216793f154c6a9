package handlers

import (
	"net/http"
	"testing"

	"github.com/freelancehub/freelancehub-backend/internal/models"
)

func (e *testEnv) leaveReview(t *testing.T, reviewer, reviewed models.User, taskID string, rating int, positive bool) models.Review {
	t.Helper()

	resp := e.doRequest(t, http.MethodPost, "/api/reviews", map[string]any{
		"task_id":          taskID,
		"reviewed_user_id": reviewed.ID.String(),
		"rating":           rating,
		"comment":          "some comment",
		"is_positive":      positive,
	}, e.token(t, reviewer))
	wantStatus(t, resp, http.StatusCreated)

	var review models.Review
	decodeData(t, resp, &review)
	return review
}

func TestCreateReviewParticipantsOnly(t *testing.T) {
	env := setupTestEnv(t)
	task := env.assignedTask(t, "Review authz")

	resp := env.doRequest(t, http.MethodPost, "/api/reviews", map[string]any{
		"task_id":          task.ID.String(),
		"reviewed_user_id": env.freelancer.ID.String(),
		"rating":           5,
	}, env.token(t, env.freelancer2))
	wantStatus(t, resp, http.StatusForbidden)

	env.leaveReview(t, env.employer, env.freelancer, task.ID.String(), 5, true)

	// one review per (task, reviewer)
	resp = env.doRequest(t, http.MethodPost, "/api/reviews", map[string]any{
		"task_id":          task.ID.String(),
		"reviewed_user_id": env.freelancer.ID.String(),
		"rating":           1,
	}, env.token(t, env.employer))
	wantStatus(t, resp, http.StatusConflict)

	// the other side still has its slot
	env.leaveReview(t, env.freelancer, env.employer, task.ID.String(), 4, true)
}

func TestCreateReviewRatingBounds(t *testing.T) {
	env := setupTestEnv(t)
	task := env.assignedTask(t, "Rating bounds")

	for _, rating := range []int{0, 6, -1} {
		resp := env.doRequest(t, http.MethodPost, "/api/reviews", map[string]any{
			"task_id":          task.ID.String(),
			"reviewed_user_id": env.freelancer.ID.String(),
			"rating":           rating,
		}, env.token(t, env.employer))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("rating %d: status = %d, want 400", rating, resp.StatusCode)
		}
	}
}

func TestReviewAggregatesFollowMutations(t *testing.T) {
	env := setupTestEnv(t)
	t1 := env.assignedTask(t, "Agg 1")

	t2 := env.createTask(t, env.employer, "Agg 2")
	env.acceptBid(t, env.employer, env.placeBid(t, env.freelancer, t2.ID.String(), 20))

	env.leaveReview(t, env.employer, env.freelancer, t1.ID.String(), 5, true)
	review := env.leaveReview(t, env.employer, env.freelancer, t2.ID.String(), 1, false)

	var profile models.FreelancerProfile
	env.db.First(&profile, "user_id = ?", env.freelancer.ID)
	if profile.Rating != 3 {
		t.Errorf("rating = %v, want 3", profile.Rating)
	}
	if profile.PositiveReviews != 1 || profile.NegativeReviews != 1 {
		t.Errorf("counts = +%d/-%d, want +1/-1", profile.PositiveReviews, profile.NegativeReviews)
	}

	// editing re-derives the aggregates
	resp := env.doRequest(t, http.MethodPut, "/api/reviews/"+review.ID.String(), map[string]any{
		"rating":      3,
		"is_positive": true,
	}, env.token(t, env.employer))
	wantStatus(t, resp, http.StatusOK)

	env.db.First(&profile, "user_id = ?", env.freelancer.ID)
	if profile.Rating != 4 {
		t.Errorf("rating after edit = %v, want 4", profile.Rating)
	}
	if profile.PositiveReviews != 2 || profile.NegativeReviews != 0 {
		t.Errorf("counts after edit = +%d/-%d, want +2/-0", profile.PositiveReviews, profile.NegativeReviews)
	}

	// so does deleting
	resp = env.doRequest(t, http.MethodDelete, "/api/reviews/"+review.ID.String(), nil, env.token(t, env.employer))
	wantStatus(t, resp, http.StatusOK)

	env.db.First(&profile, "user_id = ?", env.freelancer.ID)
	if profile.Rating != 5 {
		t.Errorf("rating after delete = %v, want 5", profile.Rating)
	}
	if profile.PositiveReviews != 1 || profile.NegativeReviews != 0 {
		t.Errorf("counts after delete = +%d/-%d, want +1/-0", profile.PositiveReviews, profile.NegativeReviews)
	}
}

func TestListReviewsAboutMe(t *testing.T) {
	env := setupTestEnv(t)

	// nothing yet: still a 200 with an empty list
	resp := env.doRequest(t, http.MethodGet, "/api/reviews/me", nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusOK)

	var reviews []models.Review
	decodeData(t, resp, &reviews)
	if len(reviews) != 0 {
		t.Fatalf("got %d reviews, want 0", len(reviews))
	}

	task := env.assignedTask(t, "About me")
	env.leaveReview(t, env.employer, env.freelancer, task.ID.String(), 4, true)

	resp = env.doRequest(t, http.MethodGet, "/api/reviews/me", nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusOK)
	decodeData(t, resp, &reviews)
	if len(reviews) != 1 || reviews[0].ReviewedUserID != env.freelancer.ID {
		t.Fatalf("unexpected listing: %+v", reviews)
	}
}

func TestGetReviewForTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.assignedTask(t, "By task")
	token := env.token(t, env.employer)

	resp := env.doRequest(t, http.MethodGet, "/api/reviews/task/"+task.ID.String(), nil, token)
	wantStatus(t, resp, http.StatusNotFound)

	left := env.leaveReview(t, env.employer, env.freelancer, task.ID.String(), 4, true)

	resp = env.doRequest(t, http.MethodGet, "/api/reviews/task/"+task.ID.String(), nil, token)
	wantStatus(t, resp, http.StatusOK)

	var review models.Review
	decodeData(t, resp, &review)
	if review.ID != left.ID {
		t.Errorf("got review %s, want %s", review.ID, left.ID)
	}
}

func TestEditReviewAuthorOnly(t *testing.T) {
	env := setupTestEnv(t)
	task := env.assignedTask(t, "Review author")
	review := env.leaveReview(t, env.employer, env.freelancer, task.ID.String(), 2, false)

	resp := env.doRequest(t, http.MethodPut, "/api/reviews/"+review.ID.String(), map[string]any{
		"rating": 5,
	}, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusForbidden)

	resp = env.doRequest(t, http.MethodDelete, "/api/reviews/"+review.ID.String(), nil, env.token(t, env.freelancer))
	wantStatus(t, resp, http.StatusForbidden)
}

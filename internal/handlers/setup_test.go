package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/middleware"
	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/realtime"
	"github.com/freelancehub/freelancehub-backend/internal/services/notify"
	"github.com/freelancehub/freelancehub-backend/internal/utils"
)

const testSecret = "test-secret"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	hub *realtime.Hub

	employer    models.User
	freelancer  models.User
	freelancer2 models.User
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.EmployerProfile{},
		&models.Category{},
		&models.Task{},
		&models.Bid{},
		&models.Assignment{},
		&models.Chat{},
		&models.Message{},
		&models.Review{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()

	pw, err := utils.HashPassword("pass1234")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := models.User{
		Email:     email,
		Password:  pw,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}

	if role == models.RoleFreelancer {
		if err := db.Create(&models.FreelancerProfile{UserID: u.ID}).Error; err != nil {
			t.Fatalf("seed freelancer profile: %v", err)
		}
	} else {
		if err := db.Create(&models.EmployerProfile{UserID: u.ID}).Error; err != nil {
			t.Fatalf("seed employer profile: %v", err)
		}
	}

	return u
}

// setupTestEnv wires a fiber app with the same route layout as cmd/api,
// backed by an in-memory sqlite database, plus three users.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)

	hub := realtime.NewHub()
	go hub.Run()

	notifier := notify.NewService(db, hub, nil)

	authH := &AuthHandler{DB: db, JWTSecret: testSecret, Expires: 60}
	taskH := NewTaskHandler(db)
	bidH := NewBidHandler(db, notifier)
	assignH := NewAssignmentHandler(db, notifier)
	chatH := NewChatHandler(db, hub, notifier, testSecret)
	notifH := NewNotificationHandler(db)
	reviewH := NewReviewHandler(db, notifier)

	app := fiber.New()

	api := app.Group("/api")
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Get("/tasks", taskH.List)
	api.Get("/tasks/:id", taskH.Get)

	protected := api.Group("/",
		middleware.JWTAuth(testSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)
	protected.Post("/tasks", middleware.RequireRoles("employer"), taskH.Create)
	protected.Patch("/tasks/:id", taskH.Update)
	protected.Delete("/tasks/:id", taskH.Delete)

	protected.Post("/bids", middleware.RequireRoles("freelancer"), bidH.Create)
	protected.Get("/bids/me", middleware.RequireRoles("freelancer"), bidH.ListMine)
	protected.Get("/tasks/:id/bids", bidH.ListForTask)
	protected.Patch("/bids/:id/status", middleware.RequireRoles("employer"), bidH.UpdateStatus)
	protected.Delete("/bids/:id", bidH.Delete)

	protected.Get("/assignments/me", assignH.ListMine)
	protected.Patch("/assignments/:id/status", assignH.UpdateStatus)

	chat := protected.Group("/chats")
	chat.Post("/", chatH.CreateOrGet)
	chat.Get("/", chatH.GetMyChats)
	chat.Post("/:id/messages", chatH.SendMessage)
	chat.Put("/:id/messages/:messageId", chatH.EditMessage)
	chat.Delete("/:id/messages/:messageId", chatH.DeleteMessage)
	protected.Get("/tasks/:id/messages", chatH.GetMessagesForTask)

	protected.Get("/notifications/me", notifH.ListMine)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)

	protected.Post("/reviews", reviewH.Create)
	protected.Get("/reviews/me", reviewH.ListAboutMe)
	protected.Get("/reviews/task/:taskId", reviewH.GetForTask)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	return &testEnv{
		app:         app,
		db:          db,
		hub:         hub,
		employer:    seedUser(t, db, "employer@example.com", models.RoleEmployer),
		freelancer:  seedUser(t, db, "freelancer1@example.com", models.RoleFreelancer),
		freelancer2: seedUser(t, db, "freelancer2@example.com", models.RoleFreelancer),
	}
}

func (e *testEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := utils.SignJWT(testSecret, u.ID.String(), string(u.Role), 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func (e *testEnv) doRequest(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Created bool            `json:"created"`
	Data    json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, resp *http.Response) apiResponse {
	t.Helper()
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func decodeData(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	out := decodeResponse(t, resp)
	if err := json.Unmarshal(out.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/freelancehub/freelancehub-backend/internal/utils"
)

const testSecret = "test-secret"

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/whoami",
		JWTAuth(testSecret),
		AttachJWTLocals(),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"userId": c.Locals("userId"),
				"role":   c.Locals("role"),
			})
		})
	app.Get("/employer-only",
		JWTAuth(testSecret),
		AttachJWTLocals(),
		RequireRoles("employer"),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func request(t *testing.T, app *fiber.App, path, bearer, cookie string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if cookie != "" {
		req.Header.Set("Cookie", "fh_token="+cookie)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestJWTAuthSources(t *testing.T) {
	app := newTestApp()
	token, err := utils.SignJWT(testSecret, "b2a7c890-0000-0000-0000-000000000001", "Freelancer", 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if resp := request(t, app, "/whoami", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no credential: status = %d, want 401", resp.StatusCode)
	}
	if resp := request(t, app, "/whoami", "garbage", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad bearer: status = %d, want 401", resp.StatusCode)
	}
	if resp := request(t, app, "/whoami", token, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("bearer: status = %d, want 200", resp.StatusCode)
	}
	if resp := request(t, app, "/whoami", "", token); resp.StatusCode != http.StatusOK {
		t.Errorf("cookie: status = %d, want 200", resp.StatusCode)
	}

	wrong, err := utils.SignJWT("another-secret", "b2a7c890-0000-0000-0000-000000000001", "freelancer", 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if resp := request(t, app, "/whoami", wrong, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireRolesUsesNormalizedClaim(t *testing.T) {
	app := newTestApp()

	// role casing from the token must not matter
	employer, err := utils.SignJWT(testSecret, "b2a7c890-0000-0000-0000-000000000002", "EMPLOYER", 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if resp := request(t, app, "/employer-only", employer, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("employer: status = %d, want 200", resp.StatusCode)
	}

	freelancer, err := utils.SignJWT(testSecret, "b2a7c890-0000-0000-0000-000000000003", "freelancer", 60)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if resp := request(t, app, "/employer-only", freelancer, ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("freelancer: status = %d, want 403", resp.StatusCode)
	}
}

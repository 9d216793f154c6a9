package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"` // freelancer / employer
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

func userOut(u *models.User) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}
}

func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "fh_token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "invalid email format")
	}
	if password == "" {
		errs.Add("password", "password is required")
	} else if len(password) < 6 {
		errs.Add("password", "password must be at least 6 characters")
	}
	if firstName == "" {
		errs.Add("first_name", "first name is required")
	}
	if lastName == "" {
		errs.Add("last_name", "last name is required")
	}
	if role != models.RoleFreelancer && role != models.RoleEmployer {
		errs.Add("role", "role must be freelancer or employer")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "email is already registered")
		return validationFail(c, errs)
	} else if err != gorm.ErrRecordNotFound {
		return fail(c, fiber.StatusInternalServerError, "Server error")
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to process password")
	}

	u := models.User{
		Email:     email,
		Password:  pw,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
	}

	// User and their role-side profile land together or not at all.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		if role == models.RoleFreelancer {
			return tx.Create(&models.FreelancerProfile{UserID: u.ID}).Error
		}
		return tx.Create(&models.EmployerProfile{UserID: u.ID}).Error
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to register")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  userOut(&u),
			"token": token,
		},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		return fail(c, fiber.StatusBadRequest, "email and password are required")
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	if !utils.CheckPassword(u.Password, password) {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	now := time.Now()
	_ = h.DB.Model(&models.User{}).Where("id = ?", u.ID).Update("last_online", now).Error

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  userOut(&u),
			"token": token,
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "fh_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var u models.User
	if err := h.DB.
		Preload("FreelancerProfile").
		Preload("EmployerProfile").
		First(&u, "id = ?", uid).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    u,
	})
}

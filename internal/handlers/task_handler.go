package handlers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/authz"
	"github.com/freelancehub/freelancehub-backend/internal/models"
)

type TaskHandler struct {
	DB *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{DB: db}
}

type CreateTaskReq struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	BudgetType   string   `json:"budget_type"`
	Budget       *float64 `json:"budget"`
	MinBudget    *float64 `json:"min_budget"`
	MaxBudget    *float64 `json:"max_budget"`
	CategoryID   *string  `json:"category_id"`
	Deadline     *string  `json:"deadline"` // 2006-01-02
	Requirements string   `json:"requirements"`
}

// checkBudget validates the budget_type discriminant: fixed means budget set
// and min/max unset, range the other way around.
func checkBudget(budgetType models.BudgetType, budget, min, max *float64) string {
	switch budgetType {
	case "":
		return ""
	case models.BudgetFixed:
		if budget == nil {
			return "budget is required for budget_type=fixed"
		}
		if min != nil || max != nil {
			return "min_budget/max_budget must be unset for budget_type=fixed"
		}
	case models.BudgetRange:
		if min == nil || max == nil {
			return "min_budget and max_budget are required for budget_type=range"
		}
		if budget != nil {
			return "budget must be unset for budget_type=range"
		}
		if *min > *max {
			return "min_budget must not exceed max_budget"
		}
	default:
		return "budget_type must be fixed or range"
	}
	return ""
}

func parseDeadline(s string) (*time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create persists a new open task for the calling employer. The employer
// role itself is enforced by the route's RequireRoles middleware.
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req CreateTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Title) == "" {
		return fail(c, fiber.StatusBadRequest, "Title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fail(c, fiber.StatusBadRequest, "Description is required")
	}
	if msg := checkBudget(models.BudgetType(req.BudgetType), req.Budget, req.MinBudget, req.MaxBudget); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}

	task := models.Task{
		EmployerID:   userUUID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		BudgetType:   models.BudgetType(req.BudgetType),
		Budget:       req.Budget,
		MinBudget:    req.MinBudget,
		MaxBudget:    req.MaxBudget,
		Requirements: req.Requirements,
		Status:       models.TaskStatusOpen,
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		catUUID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid category ID")
		}
		var cat models.Category
		if err := h.DB.First(&cat, "id = ?", catUUID).Error; err != nil {
			return fail(c, fiber.StatusNotFound, "Category not found")
		}
		task.CategoryID = &catUUID
	}

	if req.Deadline != nil && *req.Deadline != "" {
		d, err := parseDeadline(*req.Deadline)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid deadline, expected YYYY-MM-DD")
		}
		task.Deadline = d
	}

	if err := h.DB.Create(&task).Error; err != nil {
		log.Println("Error creating task:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create task")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

type UpdateTaskReq struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	BudgetType   *string  `json:"budget_type"`
	Budget       *float64 `json:"budget"`
	MinBudget    *float64 `json:"min_budget"`
	MaxBudget    *float64 `json:"max_budget"`
	CategoryID   *string  `json:"category_id"`
	Deadline     *string  `json:"deadline"`
	Requirements *string  `json:"requirements"`
	Status       *string  `json:"status"`
}

// Update applies a partial patch: absent fields stay untouched.
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	taskUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.CanMutateTask(userUUID, &task); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not the owner of this task")
	}

	var req UpdateTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return fail(c, fiber.StatusBadRequest, "Title cannot be empty")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Requirements != nil {
		updates["requirements"] = *req.Requirements
	}
	if req.Status != nil {
		if !models.TaskStatus(*req.Status).Valid() {
			return fail(c, fiber.StatusBadRequest, "Invalid status")
		}
		updates["status"] = *req.Status
	}
	if req.BudgetType != nil {
		if msg := checkBudget(models.BudgetType(*req.BudgetType), req.Budget, req.MinBudget, req.MaxBudget); msg != "" {
			return fail(c, fiber.StatusBadRequest, msg)
		}
		updates["budget_type"] = *req.BudgetType
		updates["budget"] = req.Budget
		updates["min_budget"] = req.MinBudget
		updates["max_budget"] = req.MaxBudget
	} else if req.Budget != nil || req.MinBudget != nil || req.MaxBudget != nil {
		// No budget_type in the patch: the stored discriminant still governs
		// what the merged result may look like.
		budget, min, max := task.Budget, task.MinBudget, task.MaxBudget
		if req.Budget != nil {
			budget = req.Budget
		}
		if req.MinBudget != nil {
			min = req.MinBudget
		}
		if req.MaxBudget != nil {
			max = req.MaxBudget
		}
		if msg := checkBudget(task.BudgetType, budget, min, max); msg != "" {
			return fail(c, fiber.StatusBadRequest, msg)
		}
		if req.Budget != nil {
			updates["budget"] = req.Budget
		}
		if req.MinBudget != nil {
			updates["min_budget"] = req.MinBudget
		}
		if req.MaxBudget != nil {
			updates["max_budget"] = req.MaxBudget
		}
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			updates["category_id"] = nil
		} else {
			catUUID, err := uuid.Parse(*req.CategoryID)
			if err != nil {
				return fail(c, fiber.StatusBadRequest, "Invalid category ID")
			}
			var cat models.Category
			if err := h.DB.First(&cat, "id = ?", catUUID).Error; err != nil {
				return fail(c, fiber.StatusNotFound, "Category not found")
			}
			updates["category_id"] = catUUID
		}
	}
	if req.Deadline != nil {
		if *req.Deadline == "" {
			updates["deadline"] = nil
		} else {
			d, err := parseDeadline(*req.Deadline)
			if err != nil {
				return fail(c, fiber.StatusBadRequest, "Invalid deadline, expected YYYY-MM-DD")
			}
			updates["deadline"] = d
		}
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&task).Updates(updates).Error; err != nil {
			log.Println("Error updating task:", err)
			return fail(c, fiber.StatusInternalServerError, "Failed to update task")
		}
	}

	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to reload task")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Delete removes the task and cascades by hand inside one transaction:
// bids, reviews and the assignment go with it, chat task refs are nulled.
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	taskUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.CanMutateTask(userUUID, &task); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not the owner of this task")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskUUID).Delete(&models.Bid{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskUUID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskUUID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Chat{}).Where("task_id = ?", taskUUID).
			Update("task_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		log.Println("Error deleting task:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to delete task")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task deleted",
	})
}

// List is public. Filters: category_id, min/max on the fixed budget field,
// status, inclusive deadline window; offset+limit pagination; created_at
// then id ordering keeps pages deterministic.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	q := h.DB.Model(&models.Task{})

	if cat := c.Query("category_id"); cat != "" {
		catUUID, err := uuid.Parse(cat)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid category_id")
		}
		q = q.Where("category_id = ?", catUUID)
	}
	if s := c.Query("status"); s != "" {
		if !models.TaskStatus(s).Valid() {
			return fail(c, fiber.StatusBadRequest, "Invalid status filter")
		}
		q = q.Where("status = ?", s)
	}
	if min := c.Query("min_budget"); min != "" {
		v, err := strconv.ParseFloat(min, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid min_budget")
		}
		q = q.Where("budget >= ?", v)
	}
	if max := c.Query("max_budget"); max != "" {
		v, err := strconv.ParseFloat(max, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid max_budget")
		}
		q = q.Where("budget <= ?", v)
	}
	if from := c.Query("deadline_from"); from != "" {
		d, err := time.Parse("2006-01-02", from)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid deadline_from, expected YYYY-MM-DD")
		}
		q = q.Where("deadline >= ?", d)
	}
	if to := c.Query("deadline_to"); to != "" {
		d, err := time.Parse("2006-01-02", to)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid deadline_to, expected YYYY-MM-DD")
		}
		q = q.Where("deadline <= ?", d)
	}

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var tasks []models.Task
	if err := q.
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&tasks).Error; err != nil {
		log.Println("Error listing tasks:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch tasks")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tasks,
	})
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	taskUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.Preload("Category").First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

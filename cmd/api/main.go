package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/freelancehub/freelancehub-backend/internal/config"
	"github.com/freelancehub/freelancehub-backend/internal/db"
	"github.com/freelancehub/freelancehub-backend/internal/handlers"
	"github.com/freelancehub/freelancehub-backend/internal/middleware"
	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/realtime"
	"github.com/freelancehub/freelancehub-backend/internal/services/notify"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
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
		log.Fatal(err)
	}

	notifier := notify.NewService(gdb, hub, rdb)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	taskH := handlers.NewTaskHandler(gdb)
	bidH := handlers.NewBidHandler(gdb, notifier)
	assignH := handlers.NewAssignmentHandler(gdb, notifier)
	chatH := handlers.NewChatHandler(gdb, hub, notifier, cfg.JWTSecret)
	notifH := handlers.NewNotificationHandler(gdb)
	reviewH := handlers.NewReviewHandler(gdb, notifier)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/tasks", taskH.List)
	api.Get("/tasks/:id", taskH.Get)

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	// tasks
	protected.Post("/tasks",
		middleware.RequireRoles("employer"),
		taskH.Create,
	)
	protected.Patch("/tasks/:id", taskH.Update)
	protected.Delete("/tasks/:id", taskH.Delete)

	// bids
	protected.Post("/bids",
		middleware.RequireRoles("freelancer"),
		bidH.Create,
	)
	protected.Get("/bids/me",
		middleware.RequireRoles("freelancer"),
		bidH.ListMine,
	)
	protected.Get("/tasks/:id/bids", bidH.ListForTask)
	protected.Patch("/bids/:id/status",
		middleware.RequireRoles("employer"),
		bidH.UpdateStatus,
	)
	protected.Delete("/bids/:id", bidH.Delete)

	// assignments
	protected.Get("/assignments/me", assignH.ListMine)
	protected.Patch("/assignments/:id/status", assignH.UpdateStatus)

	// chats
	chat := protected.Group("/chats")
	chat.Post("/", chatH.CreateOrGet)
	chat.Get("/", chatH.GetMyChats)
	chat.Post("/:id/messages", chatH.SendMessage)
	chat.Put("/:id/messages/:messageId", chatH.EditMessage)
	chat.Delete("/:id/messages/:messageId", chatH.DeleteMessage)
	protected.Get("/tasks/:id/messages", chatH.GetMessagesForTask)

	// notifications
	protected.Get("/notifications/me", notifH.ListMine)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)

	// reviews
	protected.Post("/reviews", reviewH.Create)
	protected.Get("/reviews/me", reviewH.ListAboutMe)
	protected.Get("/reviews/task/:taskId", reviewH.GetForTask)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	// WebSocket endpoint (auth via token query param)
	app.Get("/ws/chats/:id", websocket.New(chatH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}

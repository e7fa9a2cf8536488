package main

import (
	"time"

	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (a *app) router() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryWithLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(a.metrics.Middleware())

	r.GET("/health", a.health.HealthHandler())
	r.GET("/ready", a.health.ReadinessHandler())
	r.GET("/live", a.health.LivenessHandler())
	r.GET("/metrics", a.metrics.Handler())

	authHandler := handlers.NewAuthHandler(a.auth)
	refreshHandler := handlers.NewRefreshHandler(a.auth)
	logoutHandler := handlers.NewLogoutHandler(a.auth)
	registerHandler := handlers.NewRegisterHandler(a.register)
	userHandler := handlers.NewUserHandler(a.users)
	taskHandler := handlers.NewTaskHandler(a.tasks, a.comments)
	shareHandler := handlers.NewShareHandler(a.shares, a.tasks)
	notificationHandler := handlers.NewNotificationHandler(a.notifications)

	public := r.Group("/api")
	if a.limiter != nil {
		public.Use(a.limiter.Middleware())
	}
	public.POST("/register", registerHandler.Registration)
	public.POST("/login", authHandler.Token)
	public.POST("/token/refresh", refreshHandler.Refresh)

	api := r.Group("/api", middleware.Authenticate(a.auth))
	if a.limiter != nil {
		api.Use(a.limiter.Middleware())
	}
	api.POST("/logout", logoutHandler.Logout)

	api.GET("/profile", userHandler.GetUserProfile)
	api.GET("/users", middleware.RequireRole(models.RoleAdmin), userHandler.GetUsers)
	api.GET("/users/:user_id", userHandler.GetUserProfileByUserId)
	api.PUT("/users/:user_id", userHandler.UpdateUserProfile)
	api.PUT("/users/:user_id/role", middleware.RequireRole(models.RoleAdmin), userHandler.SetUserRole)

	api.GET("/tasks", taskHandler.GetTasks)
	api.GET("/tasks/filter", taskHandler.FilterTasks)
	api.GET("/tasks/sort", taskHandler.SortTasks)
	api.POST("/tasks", taskHandler.CreateTask)
	api.GET("/tasks/:id", taskHandler.GetTask)
	api.PUT("/tasks/:id", taskHandler.UpdateTask)
	api.DELETE("/tasks/:id", taskHandler.DeleteTask)
	api.PUT("/tasks/:id/status", taskHandler.SetStatus)
	api.GET("/tasks/:id/comments", taskHandler.ListComments)
	api.POST("/tasks/:id/comments", taskHandler.AddComment)

	api.POST("/tasks/:id/share", shareHandler.ShareTask)
	api.GET("/tasks/:id/shares", shareHandler.ListGrants)
	api.DELETE("/tasks/:id/share/:user_id", shareHandler.RevokeShare)

	api.GET("/shared-tasks", shareHandler.ListSharedWithMe)
	api.GET("/shared-tasks/:id", shareHandler.GetSharedTask)
	api.PUT("/shared-tasks/:id", shareHandler.UpdateSharedTask)
	api.DELETE("/shared-tasks/:id", shareHandler.LeaveShare)

	api.GET("/notifications", notificationHandler.GetNotifications)
	api.PUT("/notifications/markread", notificationHandler.MarkAllRead)

	return r
}

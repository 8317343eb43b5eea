package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/internal/bootstrap"
	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/internal/interfaces/middleware"
	"github.com/orbitapp/backend/internal/interfaces/rest"
	"github.com/orbitapp/backend/pkg/constants"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	conn, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(conn); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := bootstrap.InitializeSystemData(conn); err != nil {
		log.Fatalf("Failed to initialize system data: %v", err)
	}

	svcMgr := services.NewServiceManager(conn)
	log.Println("🔧 Service manager initialized")

	router := gin.Default()
	router.Use(middleware.Cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "server": "orbit"})
	})

	// Handlers
	authHandler := rest.NewAuthHandler(svcMgr.Auth, svcMgr.Users)
	userHandler := rest.NewUserHandler(svcMgr.Users)
	orgHandler := rest.NewOrganizationHandler(svcMgr.Organizations)
	projectHandler := rest.NewProjectHandler(svcMgr.Projects)
	taskHandler := rest.NewTaskHandler(svcMgr.Tasks)
	qcHandler := rest.NewQCHandler(svcMgr.QC)
	payoutHandler := rest.NewPayoutHandler(svcMgr.Payouts, svcMgr.Tasks, svcMgr.QC)
	contractHandler := rest.NewContractHandler(svcMgr.Contracts)
	fileHandler := rest.NewFileHandler(svcMgr.Contracts)
	notificationHandler := rest.NewNotificationHandler(svcMgr.Notifications)
	gamificationHandler := rest.NewGamificationHandler(svcMgr.Gamification)
	analyticsHandler := rest.NewAnalyticsHandler(svcMgr.Analytics)
	guestHandler := rest.NewGuestHandler(svcMgr.Guests)
	auditHandler := rest.NewAuditHandler(svcMgr.Audit)

	// Middleware
	requireAuth := middleware.RequireAuth(svcMgr.Auth)
	requireAdmin := middleware.RequireAdmin()
	requirePM := middleware.RequireRole(constants.RoleProjectManager)
	requireQC := middleware.RequireRole(constants.RoleQualityControl, constants.RoleProjectManager)

	api := router.Group("/api")
	{
		// Public routes: registration, login, contract signatures, trial
		// workspaces. Everything else requires a Bearer token.
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		public := api.Group("/public")
		{
			public.GET("/contracts/:token", contractHandler.PublicView)
			public.POST("/contracts/:token/sign", contractHandler.PublicSign)
			public.POST("/contracts/:token/decline", contractHandler.PublicDecline)
			public.GET("/submit/:token", contractHandler.PublicSubmitView)
			public.POST("/submit/:token", contractHandler.PublicSubmitWork)

			public.POST("/guest", guestHandler.Start)
			public.GET("/guest/:token", guestHandler.Get)
			public.POST("/guest/:token/tasks", guestHandler.AddTask)
			public.PATCH("/guest/:token/tasks/:taskId", guestHandler.MoveTask)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", requireAdmin, userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PATCH("/me", userHandler.UpdateProfile)
			users.PATCH("/:id", requireAdmin, userHandler.AdminUpdate)
			users.PUT("/me/r", userHandler.SetR)
			users.GET("/me/salary", userHandler.Salary)
		}

		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.POST("", orgHandler.Create)
			orgs.GET("", orgHandler.List)
			orgs.GET("/:id", orgHandler.Get)
			orgs.PATCH("/:id", orgHandler.Rename)
			orgs.GET("/:id/members", orgHandler.ListMembers)
			orgs.POST("/:id/members", orgHandler.AddMember)
			orgs.PATCH("/:id/members/:userId", orgHandler.UpdateMemberRole)
			orgs.DELETE("/:id/members/:userId", orgHandler.RemoveMember)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.POST("", projectHandler.Create)
			projects.GET("", projectHandler.List)
			projects.GET("/:id", projectHandler.Get)
			projects.PATCH("/:id", projectHandler.Update)
			projects.GET("/:id/access", projectHandler.ListAccess)
			projects.POST("/:id/access", projectHandler.GrantAccess)
			projects.DELETE("/:id/access/:userId", projectHandler.RevokeAccess)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", taskHandler.Create)
			tasks.GET("", taskHandler.ListByProject)
			tasks.GET("/mine", taskHandler.ListMine)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PATCH("/:id", taskHandler.Update)
			tasks.POST("/:id/assign", taskHandler.Assign)
			tasks.POST("/:id/start", taskHandler.Start)
			tasks.POST("/:id/submit", taskHandler.Submit)
			tasks.POST("/:id/access", taskHandler.GrantAccess)
			tasks.DELETE("/:id/access/:userId", taskHandler.RevokeAccess)

			tasks.POST("/:id/qc", requireQC, qcHandler.RecordPass)
			tasks.GET("/:id/qc", qcHandler.ListPasses)
			tasks.POST("/:id/decision", requireQC, qcHandler.Decide)

			tasks.GET("/:id/payouts", payoutHandler.ListByTask)
			tasks.GET("/:id/payouts/preview", payoutHandler.Preview)
		}

		payouts := api.Group("/payouts")
		payouts.Use(requireAuth)
		{
			payouts.GET("/mine", payoutHandler.ListMine)
			payouts.POST("/:id/release", requirePM, payoutHandler.Release)
		}

		contracts := api.Group("/contracts")
		contracts.Use(requireAuth)
		{
			contracts.POST("", contractHandler.Create)
			contracts.GET("", contractHandler.List)
			contracts.GET("/:id", contractHandler.Get)
			contracts.PATCH("/:id", contractHandler.Update)
			contracts.POST("/:id/send", contractHandler.Send)
			contracts.POST("/:id/dispute", contractHandler.Dispute)
			contracts.POST("/:id/resolve", contractHandler.Resolve)
			contracts.POST("/:id/pdf", fileHandler.UploadContractPDF)
			contracts.GET("/:id/pdf", fileHandler.DownloadContractPDF)
		}

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		gamification := api.Group("/gamification")
		gamification.Use(requireAuth)
		{
			gamification.GET("/badges", gamificationHandler.ListBadges)
			gamification.POST("/badges", requireAdmin, gamificationHandler.CreateBadge)
			gamification.PATCH("/badges/:id", requireAdmin, gamificationHandler.SetBadgeActive)
			gamification.GET("/me", gamificationHandler.MyStats)
			gamification.GET("/me/progress", gamificationHandler.Progress)
			gamification.POST("/me/evaluate", gamificationHandler.Evaluate)
			gamification.GET("/leaderboard", gamificationHandler.Leaderboard)
		}

		analytics := api.Group("/analytics")
		analytics.Use(requireAuth)
		{
			analytics.GET("/overview", analyticsHandler.Overview)
			analytics.GET("/earnings", analyticsHandler.Earnings)
			analytics.GET("/throughput", analyticsHandler.Throughput)
			analytics.GET("/qc", analyticsHandler.QCSummary)
			analytics.POST("/query", requireAdmin, analyticsHandler.Query)
			analytics.POST("/export", requireAdmin, analyticsHandler.Export)
		}

		audit := api.Group("/audit")
		audit.Use(requireAuth, requireAdmin)
		{
			audit.GET("", auditHandler.List)
		}
	}

	if err := svcMgr.StartWorkers(); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}
	log.Println("📤 Outbox worker and scheduler started")

	log.Println("🚀 Orbit backend started")
	log.Printf("📍 Server:       http://localhost:%s", port)
	log.Printf("🔐 Auth API:     http://localhost:%s/api/auth", port)
	log.Printf("💚 Health check: http://localhost:%s/health", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.StopWorkers()
	log.Println("🛑 Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/auth"
	"github.com/yukikurage/taskhub-api/internal/middleware"
	"github.com/yukikurage/taskhub-api/internal/notify"
	"github.com/yukikurage/taskhub-api/internal/services"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Authenticator *auth.Authenticator
	Auth          *services.AuthService
	Tenants       *services.TenantService
	Users         *services.UserService
	Permissions   *services.PermissionService
	Projects      *services.ProjectService
	Tasks         *services.TaskService
	Reports       *services.ReportService
	Audit         *services.AuditService
	Hub           *notify.Hub
	// WSOriginPatterns lists extra origins allowed to open the notification stream.
	WSOriginPatterns []string
}

// RegisterRoutes mounts the API under /api. Session middleware must already be
// installed on r.
func RegisterRoutes(r gin.IRouter, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Auth)
	tenantHandler := NewTenantHandler(deps.Tenants)
	userHandler := NewUserHandler(deps.Users)
	permissionHandler := NewPermissionHandler(deps.Permissions)
	projectHandler := NewProjectHandler(deps.Projects)
	taskHandler := NewTaskHandler(deps.Tasks)
	reportHandler := NewReportHandler(deps.Reports, deps.Audit)

	requireAuth := middleware.RequireAuth(deps.Authenticator)

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", requireAuth, authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		authed := api.Group("", requireAuth, middleware.ResolveTenant())

		if deps.Hub != nil {
			authed.GET("/ws", NewNotificationHandler(deps.Hub, deps.WSOriginPatterns...).Stream)
		}

		// Platform-level routes
		tenants := authed.Group("/tenants")
		{
			tenants.POST("", tenantHandler.CreateTenant)
			tenants.GET("", tenantHandler.ListTenants)
			tenants.GET("/:id", tenantHandler.GetTenant)
			tenants.PATCH("/:id", tenantHandler.UpdateTenant)
			tenants.DELETE("/:id", tenantHandler.DeleteTenant)
		}

		permissions := authed.Group("/permissions")
		{
			permissions.GET("", permissionHandler.ListPermissions)
			permissions.GET("/:user_id", permissionHandler.GetPermissions)
			permissions.PUT("/:user_id", permissionHandler.SetPermissions)
			permissions.POST("/:user_id/reset", permissionHandler.ResetPermissions)
		}

		// Tenant business data
		scoped := authed.Group("", middleware.RequireResourceScope())

		users := scoped.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		projects := scoped.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.PUT("/:id/members/:user_id", projectHandler.PutMember)
			projects.DELETE("/:id/members/:user_id", projectHandler.RemoveMember)
		}

		tasks := scoped.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PUT("/:id/status", taskHandler.ChangeStatus)
			tasks.PUT("/:id/assignee", taskHandler.AssignTask)
			tasks.GET("/:id/comments", taskHandler.ListComments)
			tasks.POST("/:id/comments", taskHandler.AddComment)
			tasks.PATCH("/:id/comments/:comment_id", taskHandler.UpdateComment)
			tasks.DELETE("/:id/comments/:comment_id", taskHandler.DeleteComment)
		}

		scoped.GET("/reports/tasks/summary", reportHandler.TaskSummary)
		scoped.GET("/audit-logs", reportHandler.ListAuditLogs)
	}
}

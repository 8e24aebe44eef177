package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AntonVanke/xuexinwang/internal/app/controllers"
	"github.com/AntonVanke/xuexinwang/internal/middleware"
	"github.com/AntonVanke/xuexinwang/internal/pkg/ratelimit"
)

// Limiters throttle the abuse-prone public endpoints
type Limiters struct {
	Login  ratelimit.Limiter
	Submit ratelimit.Limiter
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	studentController *controllers.StudentController,
	adminController *controllers.AdminController,
	healthController *controllers.HealthController,
	authMiddleware *middleware.AuthMiddleware,
	limiters Limiters,
) {
	router.GET("/health", healthController.Health)

	// --- Public routes ---
	router.POST("/submit", middleware.RateLimit(limiters.Submit, "submit"), studentController.Submit)
	router.GET("/student/:queryId", studentController.GetStudent)
	router.GET("/student/:queryId/credential", studentController.GetCredential)
	router.GET("/d/:queryId", studentController.LegacyRedirect)

	// --- Admin session routes ---
	admin := router.Group("/admin")
	{
		admin.GET("/status", adminController.Status)
		admin.POST("/setup", adminController.Setup)
		admin.POST("/login", middleware.RateLimit(limiters.Login, "login"), adminController.Login)
		admin.POST("/logout", adminController.Logout)
	}

	// --- Guarded admin routes ---
	guarded := admin.Group("")
	guarded.Use(authMiddleware.RequireAdmin())
	{
		guarded.GET("/stats", adminController.Stats)
		guarded.GET("/export.csv", adminController.ExportCSV)

		students := guarded.Group("/students")
		{
			students.GET("", adminController.ListStudents)
			students.GET("/search", adminController.SearchStudents)
			students.GET("/:queryId", adminController.GetStudent)
			students.PUT("/:queryId", adminController.UpdateStudent)
			students.DELETE("/:queryId", adminController.DeleteStudent)
			students.GET("/:queryId/credential", adminController.GetCredential)
		}
	}
}

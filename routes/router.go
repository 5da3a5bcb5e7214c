package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/controllers"
	"github.com/cppla/eduvolve/middleware"
	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *services.Service) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rotating file, at the application log level
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Count views of course and lesson pages
	r.Use(middleware.PageViewRecorder(svc.DB(), "/api/v1/courses/:id", "/api/v1/lessons/:id"))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(svc)
	courseController := controllers.NewCourseController(svc)
	lessonController := controllers.NewLessonController(svc)
	quizController := controllers.NewQuizController(svc)
	assignmentController := controllers.NewAssignmentController(svc)
	gameController := controllers.NewGamificationController(svc)
	adminController := controllers.NewAdminController(svc)
	statsController := controllers.NewStatsController(svc.DB())
	siteController := controllers.NewSiteController()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public catalog; a valid token lets owners preview their drafts
	api.GET("/courses", courseController.ListCourses)
	api.GET("/courses/:id", middleware.OptionalAuth(), courseController.GetCourse)
	api.GET("/courses/:id/stats", statsController.GetCourseStats)
	api.GET("/leaderboard", middleware.OptionalAuth(), gameController.Leaderboard)
	api.GET("/certificates/:code", gameController.VerifyCertificate)
	api.GET("/stats", statsController.GetStats)
	api.GET("/site/announcement", siteController.GetAnnouncement)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Middleware())
	protected.GET("/profile", gameController.Profile)
	protected.GET("/dashboard", gameController.Dashboard)
	protected.GET("/lessons/:id", lessonController.ViewLesson)
	protected.GET("/quizzes/:id", quizController.GetQuiz)

	student := protected.Group("")
	student.Use(middleware.RequireRole(models.RoleStudent))
	student.POST("/courses/:id/enroll", courseController.Enroll)
	student.POST("/courses/:id/drop", courseController.Drop)
	student.POST("/lessons/:id/complete", lessonController.CompleteLesson)
	student.POST("/quizzes/:id/submit", quizController.SubmitQuiz)
	student.GET("/attempts/:id", quizController.GetAttempt)
	student.POST("/assignments/:id/submit", assignmentController.Submit)
	student.GET("/assignments/:id/my-submission", assignmentController.MySubmission)
	student.GET("/certificates", gameController.Certificates)

	// Admins manage every course; only instructors create them
	staff := protected.Group("")
	staff.Use(middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
	staff.GET("/instructor/courses", courseController.MyCourses)
	staff.POST("/courses", courseController.CreateCourse)
	staff.PUT("/courses/:id", courseController.UpdateCourse)
	staff.DELETE("/courses/:id", courseController.DeleteCourse)
	staff.POST("/courses/:id/lessons", lessonController.CreateLesson)
	staff.PUT("/lessons/:id", lessonController.UpdateLesson)
	staff.DELETE("/lessons/:id", lessonController.DeleteLesson)
	staff.POST("/lessons/:id/quiz", quizController.CreateQuiz)
	staff.PUT("/quizzes/:id", quizController.UpdateQuiz)
	staff.DELETE("/quizzes/:id", quizController.DeleteQuiz)
	staff.GET("/quizzes/:id/manage", quizController.ManageQuiz)
	staff.POST("/quizzes/:id/questions", quizController.CreateQuestion)
	staff.PUT("/questions/:id", quizController.UpdateQuestion)
	staff.DELETE("/questions/:id", quizController.DeleteQuestion)
	staff.POST("/lessons/:id/assignments", assignmentController.CreateAssignment)
	staff.PUT("/assignments/:id", assignmentController.UpdateAssignment)
	staff.DELETE("/assignments/:id", assignmentController.DeleteAssignment)
	staff.GET("/assignments/:id/submissions", assignmentController.ListSubmissions)
	staff.POST("/submissions/:id/grade", assignmentController.Grade)
	staff.GET("/quiz-anomalies", adminController.QuizAnomalies)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", adminController.ListUsers)
	admin.GET("/quiz-anomalies", adminController.QuizAnomalies)
	admin.POST("/badges/reconcile", adminController.ReconcileBadges)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

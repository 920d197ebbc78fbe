package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lumenclass/lms-api/internal/config"
	"github.com/lumenclass/lms-api/internal/handler"
	"github.com/lumenclass/lms-api/internal/middleware"
	"github.com/lumenclass/lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler           *handler.CourseHandler
	AssignmentHandler       *handler.AssignmentHandler
	SubmissionHandler       *handler.SubmissionHandler
	GradingHandler          *handler.GradingHandler
	QuizHandler             *handler.QuizHandler
	QuizSubmissionHandler   *handler.QuizSubmissionHandler
	NotificationHandler     *handler.NotificationHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	ActivityHandler         *handler.ActivityHandler
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application. Grading
// routes additionally require a teacher or admin role.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	// One limiter instance shared by both grading surfaces so a grader's
	// budget covers assignment and quiz writes together.
	gradeLimiter := middleware.RateLimit("grading", cfg.GradingRateMax, cfg.GradingRateWindow)

	if deps.CourseHandler != nil {
		courses := protected.Group("/courses")
		deps.CourseHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		assignments := protected.Group("/assignments")
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.SubmissionHandler != nil {
		submissions := protected.Group("/submissions")
		deps.SubmissionHandler.Register(submissions)

		if deps.GradingHandler != nil {
			grading := protected.Group("/submissions", middleware.CanGradeSubmissions(), gradeLimiter)
			deps.GradingHandler.RegisterSubmissionRoutes(grading)
		}
	}

	if deps.QuizHandler != nil {
		quizzes := protected.Group("/quizzes")
		deps.QuizHandler.Register(quizzes)
	}

	if deps.QuizSubmissionHandler != nil {
		quizSubmissions := protected.Group("/quiz-submissions")
		deps.QuizSubmissionHandler.Register(quizSubmissions)

		if deps.GradingHandler != nil {
			grading := protected.Group("/quiz-submissions", middleware.CanGradeSubmissions(), gradeLimiter)
			deps.GradingHandler.RegisterQuizSubmissionRoutes(grading)
		}
	}

	if deps.NotificationHandler != nil {
		notifications := protected.Group("/notifications")
		deps.NotificationHandler.Register(notifications)
	}

	if deps.StudentDashboardHandler != nil {
		students := protected.Group("/students")
		deps.StudentDashboardHandler.Register(students)
	}

	if deps.ActivityHandler != nil {
		activity := protected.Group("/activity", middleware.RequireRole("teacher", "admin"))
		deps.ActivityHandler.Register(activity)
	}
}

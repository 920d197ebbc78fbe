package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumenclass/lms-api/internal/config"
	"github.com/lumenclass/lms-api/internal/database"
	"github.com/lumenclass/lms-api/internal/handler"
	"github.com/lumenclass/lms-api/internal/middleware"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/observability"
	"github.com/lumenclass/lms-api/internal/repository"
	"github.com/lumenclass/lms-api/internal/router"
	"github.com/lumenclass/lms-api/internal/service"
	"github.com/lumenclass/lms-api/pkg/coursecode"
	"github.com/lumenclass/lms-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Course{},
		&models.Assignment{},
		&models.Submission{},
		&models.SubmissionGradeHistory{},
		&models.Quiz{},
		&models.QuizSubmission{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := storage.NewCloudinaryUploader(storage.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	quizSubmissionRepo := repository.NewQuizSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	codeGenerator := coursecode.New(
		coursecode.OracleFunc(func(ctx context.Context, code string) (bool, error) {
			exists, err := courseRepo.CodeExists(ctx, code)
			return !exists, err
		}),
		rand.NewSource(time.Now().UnixNano()),
		coursecode.WithAttemptObserver(func(attempts int) {
			observability.CodeGenerationAttempts().Observe(float64(attempts))
		}),
	)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	courseService := service.NewCourseService(courseRepo, codeGenerator, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, uploader, logger)
	gradingService := service.NewGradingService(submissionRepo, assignmentRepo, validate, activityService, notificationService, logger)
	quizService := service.NewQuizService(quizRepo, courseRepo, validate, logger)
	quizSubmissionService := service.NewQuizSubmissionService(quizSubmissionRepo, quizRepo, validate, logger)
	quizGradingService := service.NewQuizGradingService(quizSubmissionRepo, quizRepo, validate, activityService, notificationService, logger)
	dashboardService := service.NewStudentDashboardService(studentRepo, assignmentRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, cfg, router.Dependencies{
		CourseHandler:           handler.NewCourseHandler(courseService, logger),
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:          handler.NewGradingHandler(gradingService, quizGradingService, logger),
		QuizHandler:             handler.NewQuizHandler(quizService, logger),
		QuizSubmissionHandler:   handler.NewQuizSubmissionHandler(quizSubmissionService, logger),
		NotificationHandler:     handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stopConsumers := context.WithCancel(context.Background())
	notificationService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumers)
}

func waitForShutdown(app *fiber.App, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"github.com/fadilmartias/interview-evaluator/internal/domain/fiber/handler"
	"github.com/fadilmartias/interview-evaluator/internal/logger"
	"github.com/fadilmartias/interview-evaluator/internal/middleware"
	"github.com/fadilmartias/interview-evaluator/internal/model"
	"github.com/fadilmartias/interview-evaluator/internal/repository"
	"github.com/fadilmartias/interview-evaluator/internal/service"
	"github.com/fadilmartias/interview-evaluator/internal/storage"
	"github.com/fadilmartias/interview-evaluator/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()

	zlog, err := logger.New(appConfig.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	app := fiber.New(fiber.Config{
		AppName:   appConfig.Name,
		BodyLimit: int(config.LoadUploadConfig().MaxSize) + 1024*1024,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}

			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: appConfig.Env != "production",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.Env == "production"
		},
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	db := ConnectDB()

	uploadConfig := config.LoadUploadConfig()
	transcripts, err := storage.NewTranscriptStore(uploadConfig.Dir)
	if err != nil {
		zlog.Fatal("init transcript store", zap.Error(err))
	}

	rubric, err := config.LoadRubric(os.Getenv("RUBRIC_FILE"))
	if err != nil {
		zlog.Fatal("load rubric", zap.Error(err))
	}

	judge, err := newJudge(ctx, zlog)
	if err != nil {
		zlog.Fatal("init judge", zap.Error(err))
	}

	interviewRepo := repository.NewInterviewRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	uc := usecase.NewEvaluationUsecase(interviewRepo, evaluationRepo, transcripts, judge, rubric, zlog)
	h := handler.NewInterviewHandler(uc, uploadConfig.MaxSize)

	h.RegisterRoutes(app)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		zlog.Info("shutting down, waiting for in-flight evaluations")
		uc.Wait()
		_ = app.Shutdown()
	}()

	zlog.Info("server running", zap.String("port", appConfig.Port))
	if err := app.Listen(appConfig.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func newJudge(ctx context.Context, zlog *zap.Logger) (service.JudgeInterface, error) {
	judgeConfig := config.LoadJudgeConfig()

	switch judgeConfig.Provider {
	case "gemini":
		return service.NewGeminiJudge(ctx, config.LoadGeminiConfig(), judgeConfig, zlog)
	case "openrouter":
		return service.NewOpenRouterJudge(config.LoadOpenRouterConfig(), judgeConfig, zlog)
	default:
		return nil, fmt.Errorf("unknown judge provider %q", judgeConfig.Provider)
	}
}

func ConnectDB() *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if appConfig.Env != "production" {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	err = db.AutoMigrate(&model.Interview{}, &model.EvaluationResult{}, &model.CriterionEvaluation{})
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}

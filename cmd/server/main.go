package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"solar-planner-go/internal/client"
	"solar-planner-go/internal/config"
	"solar-planner-go/internal/handler"
	"solar-planner-go/internal/imaging"
	"solar-planner-go/internal/service"
	"solar-planner-go/internal/solar"
	"solar-planner-go/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Solar Planner API Server")

	// Получаем конфигурацию из переменных окружения
	cfg := config.LoadConfig()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Создаем папку для статических файлов
	staticDir := filepath.Join(".", "static")
	if err := os.MkdirAll(staticDir, 0755); err != nil {
		logger.Fatalf("Ошибка создания папки для статических файлов: %v", err)
	}

	// Реестр моделей детекторов создается один раз и далее не изменяется
	registry := service.DefaultRegistry()

	// Пул горутин общий для всех запросов: детекторы плюс ветка погоды
	poolSize := cfg.Worker.PoolSize
	if poolSize < len(registry)+1 {
		poolSize = len(registry) + 1
	}

	pool, err := worker.NewPool(poolSize, logger)
	if err != nil {
		logger.Fatalf("Ошибка создания пула горутин: %v", err)
	}
	defer pool.Release()

	logger.Infof("Пул горутин создан: размер %d", pool.Cap())

	// Инициализируем клиенты внешних сервисов
	inferenceClient := client.NewInferenceClient(
		cfg.Inference.BaseURL,
		time.Duration(cfg.Inference.TimeoutSeconds)*time.Second,
		logger,
	)
	weatherClient := client.NewWeatherClient(
		cfg.Weather.APIKey,
		cfg.Weather.BaseURL,
		time.Duration(cfg.Weather.TimeoutSeconds*float64(time.Second)),
		logger,
	)
	textGenClient := client.NewTextGenClient(
		cfg.TextGen.APIKey,
		cfg.TextGen.BaseURL,
		30*time.Second,
		logger,
	)

	// Инициализируем сервисы
	analyzerService := service.NewAnalyzerService(
		registry,
		inferenceClient,
		weatherClient,
		solar.NewCalculator(),
		imaging.NewNormalizer(cfg.Detection.MaxImageDim),
		pool,
		logger,
		cfg.Detection.ConfidenceThreshold,
		time.Duration(cfg.Inference.TimeoutSeconds)*time.Second,
	)
	reportService := service.NewReportService(textGenClient, logger)

	// Инициализируем обработчики
	analyzerHandler := handler.NewAnalyzerHandler(analyzerService, reportService, logger)

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Обслуживание статических файлов
	router.Static("/static", staticDir)

	// Регистрируем маршруты
	analyzerHandler.RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Solar Planner API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	// Запускаем сервер
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Сервер запущен на %s", serverAddr)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package config

import (
	"os"
	"strconv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	Inference struct {
		BaseURL        string
		TimeoutSeconds int // таймаут одного вызова детектора
	}
	Detection struct {
		ConfidenceThreshold float64
		MaxImageDim         int
	}
	Weather struct {
		APIKey         string
		BaseURL        string
		TimeoutSeconds float64
	}
	TextGen struct {
		APIKey  string
		BaseURL string
	}
	Worker struct {
		PoolSize int
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// Конфигурация inference-сервиса с моделями детекторов
	cfg.Inference.BaseURL = getEnv("INFERENCE_API_BASE_URL", "http://localhost:8000")
	cfg.Inference.TimeoutSeconds = getEnvInt("DETECTOR_TIMEOUT_SECONDS", 30)

	// Конфигурация детекции
	cfg.Detection.ConfidenceThreshold = getEnvFloat("CONFIDENCE_THRESHOLD", 0.5)
	cfg.Detection.MaxImageDim = getEnvInt("MAX_IMAGE_DIM", 480)

	// Конфигурация WeatherAPI
	cfg.Weather.APIKey = getEnv("WEATHER_API_KEY", "")
	cfg.Weather.BaseURL = getEnv("WEATHER_API_URL", "http://api.weatherapi.com/v1/current.json")
	cfg.Weather.TimeoutSeconds = getEnvFloat("WEATHER_TIMEOUT_SECONDS", 3)

	// Конфигурация сервиса генерации рекомендаций
	cfg.TextGen.APIKey = getEnv("GEMINI_API_KEY", "")
	cfg.TextGen.BaseURL = getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent")

	// Конфигурация пула горутин
	cfg.Worker.PoolSize = getEnvInt("WORKER_POOL_SIZE", 8)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

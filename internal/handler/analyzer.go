package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"solar-planner-go/internal/service"
	"solar-planner-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalyzerHandler обработчик анализа размещения солнечных панелей
type AnalyzerHandler struct {
	analyzerService *service.AnalyzerService
	reportService   *service.ReportService
	logger          *logrus.Logger
}

// NewAnalyzerHandler создает новый обработчик
func NewAnalyzerHandler(analyzerService *service.AnalyzerService, reportService *service.ReportService, logger *logrus.Logger) *AnalyzerHandler {
	return &AnalyzerHandler{
		analyzerService: analyzerService,
		reportService:   reportService,
		logger:          logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *AnalyzerHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/analyze", h.Analyze)
	router.POST("/recommend", h.Recommend)
	router.POST("/download-report", h.DownloadReport)
	router.GET("/health", h.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/analyze", h.Analyze)
		api.POST("/recommend", h.Recommend)
		api.POST("/download-report", h.DownloadReport)
		api.GET("/health", h.HealthCheck)
	}
}

// Analyze обрабатывает запрос на анализ размещения солнечных панелей.
// Принимает файл в поле image либо base64 data URI в поле camera_image
// (при наличии обоих приоритет у файла), координаты и опциональное время.
func (h *AnalyzerHandler) Analyze(c *gin.Context) {
	h.logger.Info("Получен запрос на анализ размещения панелей")

	// Форма может быть multipart (файл) или urlencoded (снимок с камеры),
	// поэтому ошибку парсинга multipart не считаем фатальной
	_ = c.Request.ParseMultipartForm(32 << 20) // 32 MB max

	request := models.AnalyzeRequest{}

	// Получаем изображение: файл имеет приоритет над снимком камеры
	file, header, err := c.Request.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()

		data, readErr := io.ReadAll(file)
		if readErr != nil {
			h.logger.Errorf("Ошибка чтения файла изображения: %v", readErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image file"})
			return
		}

		request.ImageData = data
		request.ImageFilename = header.Filename

	case c.PostForm("camera_image") != "":
		request.CameraImage = c.PostForm("camera_image")

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	// Парсим координаты: отсутствующие считаем нулевыми,
	// некорректные и выходящие за диапазон отклоняем
	lat, err := parseCoordinate(c.PostForm("latitude"), "latitude", 90)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lon, err := parseCoordinate(c.PostForm("longitude"), "longitude", 180)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request.Latitude = lat
	request.Longitude = lon

	// Парсим время: по умолчанию текущий момент UTC
	request.Time = time.Now().UTC()
	if timeStr := c.PostForm("time"); timeStr != "" {
		parsed, terr := parseISOTime(timeStr)
		if terr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format"})
			return
		}
		request.Time = parsed.UTC()
	}

	// Вызываем конвейер анализа
	report, err := h.analyzerService.Analyze(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format"})
			return
		}

		h.logger.Errorf("Ошибка сервиса анализа: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	h.logger.Info("Анализ успешно завершен")
	c.JSON(http.StatusOK, report)
}

// Recommend обрабатывает запрос на генерацию текстовых рекомендаций.
// Всегда отвечает 200: при ошибке генерации возвращается запасной текст.
func (h *AnalyzerHandler) Recommend(c *gin.Context) {
	h.logger.Info("Получен запрос на генерацию рекомендаций")

	var request models.RecommendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	recommendation := h.reportService.Recommend(c.Request.Context(), request)
	c.JSON(http.StatusOK, models.RecommendResponse{Recommendation: recommendation})
}

// DownloadReport обрабатывает запрос на формирование PDF-отчета
func (h *AnalyzerHandler) DownloadReport(c *gin.Context) {
	h.logger.Info("Получен запрос на формирование PDF-отчета")

	var request models.DownloadReportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	pdfData, err := h.reportService.BuildPDF(request)
	if err != nil {
		h.logger.Errorf("Ошибка формирования PDF: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="solar_full_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfData)
}

// HealthCheck проверяет состояние сервиса
func (h *AnalyzerHandler) HealthCheck(c *gin.Context) {
	h.logger.Debug("Получен запрос проверки здоровья")

	health := h.analyzerService.CheckHealth(c.Request.Context())

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// parseCoordinate парсит координату из формы. Пустое значение считается
// нулем, некорректное или выходящее за +-limit отклоняется.
func parseCoordinate(value, fieldName string, limit float64) (float64, error) {
	if value == "" {
		return 0, nil
	}

	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", fieldName)
	}

	if result < -limit || result > limit {
		return 0, fmt.Errorf("%s must be between -%.0f and %.0f", fieldName, limit, limit)
	}

	return result, nil
}

// parseISOTime парсит время в формате ISO-8601.
// Время без зоны трактуется как UTC.
func parseISOTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}

	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", value)
}

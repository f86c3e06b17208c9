package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"solar-planner-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// InferenceClient клиент для взаимодействия с inference-сервисом детекторов.
// Модели загружены на стороне сервиса один раз при его старте; клиент
// безопасен для параллельных вызовов из нескольких горутин.
type InferenceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewInferenceClient создает новый клиент inference-сервиса
func NewInferenceClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *InferenceClient {
	return &InferenceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// inferenceResponse структура ответа inference-сервиса
type inferenceResponse struct {
	Detections []models.RawBox `json:"detections"`
}

// Detect отправляет изображение указанной модели и возвращает найденные рамки
func (c *InferenceClient) Detect(ctx context.Context, model string, imagePNG []byte) ([]models.RawBox, error) {
	c.logger.Debugf("Отправка изображения в модель %s", model)

	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("image", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для изображения: %w", err)
	}

	if _, err := imageWriter.Write(imagePNG); err != nil {
		return nil, fmt.Errorf("ошибка записи данных изображения: %w", err)
	}

	if err := writer.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("ошибка записи поля model: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	// Создаем HTTP запрос
	url := fmt.Sprintf("%s/models/%s/detect", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Отправляем запрос
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference-сервис вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	// Парсим JSON ответ
	var apiResponse inferenceResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	c.logger.Debugf("Модель %s вернула %d рамок", model, len(apiResponse.Detections))
	return apiResponse.Detections, nil
}

// CheckHealth проверяет доступность inference-сервиса
func (c *InferenceClient) CheckHealth(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference-сервис вернул ошибку: статус %d", resp.StatusCode)
	}

	return nil
}

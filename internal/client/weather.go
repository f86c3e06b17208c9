package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solar-planner-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// WeatherClient клиент WeatherAPI для получения текущей погоды.
// Ошибки возвращаются вызывающей стороне, которая обязана их поглотить:
// отсутствие погоды не является ошибкой анализа.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewWeatherClient создает новый клиент погодного сервиса
func NewWeatherClient(apiKey, baseURL string, timeout time.Duration, logger *logrus.Logger) *WeatherClient {
	return &WeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// weatherAPIResponse структура ответа WeatherAPI current.json
type weatherAPIResponse struct {
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
		} `json:"condition"`
		WindKph  float64 `json:"wind_kph"`
		Humidity float64 `json:"humidity"`
		UV       float64 `json:"uv"`
		Cloud    float64 `json:"cloud"`
	} `json:"current"`
}

// Current запрашивает текущую погоду по координатам
func (c *WeatherClient) Current(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	c.logger.Debugf("Запрос погоды для координат (%.4f, %.4f)", lat, lon)

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("некорректный URL погодного сервиса: %w", err)
	}

	query := u.Query()
	query.Set("key", c.apiKey)
	query.Set("q", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("aqi", "no")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

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
		return nil, fmt.Errorf("погодный сервис вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	var apiResponse weatherAPIResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return &models.WeatherSnapshot{
		TempC:     apiResponse.Current.TempC,
		Condition: apiResponse.Current.Condition.Text,
		WindKph:   apiResponse.Current.WindKph,
		Humidity:  apiResponse.Current.Humidity,
		UV:        apiResponse.Current.UV,
		Cloud:     apiResponse.Current.Cloud,
		Icon:      apiResponse.Current.Condition.Icon,
	}, nil
}

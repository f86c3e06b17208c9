package models

import "time"

// AnalyzeRequest представляет запрос на анализ размещения солнечных панелей
type AnalyzeRequest struct {
	ImageData     []byte    `json:"-"`              // Данные файла изображения (не сериализуем в JSON)
	ImageFilename string    `json:"image_filename"` // Имя файла изображения
	CameraImage   string    `json:"-"`              // Снимок с камеры в виде base64 data URI
	Latitude      float64   `json:"latitude"`       // Широта точки съемки
	Longitude     float64   `json:"longitude"`      // Долгота точки съемки
	Time          time.Time `json:"time"`           // Момент времени для расчета положения солнца (UTC)
}

// RawBox представляет рамку от inference-сервиса до присвоения метки
type RawBox struct {
	Confidence float64 `json:"confidence"` // Уверенность модели [0,1]
	BBox       [4]int  `json:"bbox"`       // Координаты рамки [x1, y1, x2, y2]
}

// Detection представляет принятое препятствие на изображении
type Detection struct {
	Label      string  `json:"label"`      // Тип препятствия (pole/tank/roof/tree)
	Confidence float64 `json:"confidence"` // Уверенность модели [0,1]
	BBox       [4]int  `json:"bbox"`       // Координаты рамки [x1, y1, x2, y2]
}

// WeatherSnapshot содержит текущую погоду в точке съемки
type WeatherSnapshot struct {
	TempC     float64 `json:"temp_c"`   // Температура в градусах Цельсия
	Condition string  `json:"condition"` // Текстовое описание погоды
	WindKph   float64 `json:"wind_kph"` // Скорость ветра в км/ч
	Humidity  float64 `json:"humidity"` // Влажность в процентах
	UV        float64 `json:"uv"`       // УФ-индекс
	Cloud     float64 `json:"cloud"`    // Облачность в процентах
	Icon      string  `json:"icon"`     // Ссылка на иконку погоды
}

// AnalysisReport представляет итоговый отчет анализа одного запроса
type AnalysisReport struct {
	ReportID                   string           `json:"report_id"`                     // Уникальный идентификатор отчета
	Obstructions               []Detection      `json:"obstructions"`                  // Список найденных препятствий
	RecommendedFreeAreaPercent float64          `json:"recommended_free_area_percent"` // Процент свободной площади
	SunAltitude                float64          `json:"sun_altitude"`                  // Высота солнца в градусах
	SunAzimuth                 float64          `json:"sun_azimuth"`                   // Азимут солнца в градусах
	SuggestedTiltAngle         float64          `json:"suggested_tilt_angle"`          // Рекомендуемый угол наклона панелей
	SuggestedOrientationDeg    float64          `json:"suggested_orientation_deg"`     // Рекомендуемая ориентация в градусах
	SuggestedOrientationDir    string           `json:"suggested_orientation_dir"`     // Рекомендуемая ориентация (сторона света)
	Message                    string           `json:"message"`                       // Сообщение с рекомендацией
	Weather                    *WeatherSnapshot `json:"weather"`                       // Погода (null если недоступна)
	SolarIndex                 int              `json:"solar_index"`                   // Индекс пригодности [10,100]
	ExposureHours              float64          `json:"exposure_hours"`                // Оценка часов освещенности [2,12]
	Latitude                   float64          `json:"latitude"`                      // Широта из запроса
	Longitude                  float64          `json:"longitude"`                     // Долгота из запроса
}

// RecommendRequest представляет запрос на генерацию текстовых рекомендаций
type RecommendRequest struct {
	FreeArea       float64          `json:"free_area"`       // Процент свободной площади
	Tilt           float64          `json:"tilt"`            // Угол наклона панелей
	OrientationDir string           `json:"orientation_dir"` // Ориентация (сторона света)
	OrientationDeg float64          `json:"orientation_deg"` // Ориентация в градусах
	Latitude       float64          `json:"latitude"`        // Широта
	Longitude      float64          `json:"longitude"`       // Долгота
	Weather        *WeatherSnapshot `json:"weather"`         // Погода (опционально)
}

// RecommendResponse представляет ответ с текстовыми рекомендациями
type RecommendResponse struct {
	Recommendation string `json:"recommendation"` // Сгенерированный текст рекомендаций
}

// ReportResult представляет один результат анализа для PDF-отчета
type ReportResult struct {
	Latitude       float64          `json:"latitude"`        // Широта
	Longitude      float64          `json:"longitude"`       // Долгота
	Weather        *WeatherSnapshot `json:"weather"`         // Погода на момент анализа
	FreeArea       float64          `json:"free_area"`       // Процент свободной площади
	Tilt           float64          `json:"tilt"`            // Угол наклона панелей
	OrientationDir string           `json:"orientation_dir"` // Ориентация (сторона света)
	OrientationDeg float64          `json:"orientation_deg"` // Ориентация в градусах
	ImageBase64    string           `json:"image_base64"`    // Снимок в виде base64 data URI (опционально)
}

// DownloadReportRequest представляет запрос на формирование PDF-отчета
type DownloadReportRequest struct {
	Results   []ReportResult `json:"results"`    // Список результатов анализа
	AISummary string         `json:"ai_summary"` // Итоговые рекомендации от AI
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status          string `json:"status"`           // Статус сервиса (healthy/unhealthy)
	ModelsAvailable bool   `json:"models_available"` // Доступен ли inference-сервис с моделями
	Version         string `json:"version"`          // Версия сервиса
}

package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"solar-planner-go/internal/imaging"
	"solar-planner-go/internal/solar"
	"solar-planner-go/internal/worker"
	"solar-planner-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Виды ошибок конвейера. Обработчик по ним выбирает HTTP статус.
var (
	// ErrInvalidImage байты не декодируются как изображение
	ErrInvalidImage = errors.New("invalid image format")
	// ErrInference вызов детектора завершился ошибкой, запрос прерывается целиком
	ErrInference = errors.New("inference failed")
)

// Detector интерфейс вызова inference-сервиса детектора
type Detector interface {
	Detect(ctx context.Context, model string, imagePNG []byte) ([]models.RawBox, error)
	CheckHealth(ctx context.Context) error
}

// WeatherProvider интерфейс получения текущей погоды
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// ModelEntry запись реестра моделей: метка препятствия и имя модели
type ModelEntry struct {
	Label string
	Model string
}

// DefaultRegistry возвращает реестр моделей детекторов.
// Реестр создается один раз при старте и далее не изменяется.
func DefaultRegistry() []ModelEntry {
	return []ModelEntry{
		{Label: "pole", Model: "pole_best"},
		{Label: "tank", Model: "tank_best"},
		{Label: "roof", Model: "roof_best"},
		{Label: "tree", Model: "tree_best"},
	}
}

// AnalyzerService сервис анализа размещения солнечных панелей
type AnalyzerService struct {
	registry            []ModelEntry
	detector            Detector
	weather             WeatherProvider
	solarCalc           *solar.Calculator
	normalizer          *imaging.Normalizer
	pool                *worker.Pool
	logger              *logrus.Logger
	confidenceThreshold float64
	detectorTimeout     time.Duration
}

// NewAnalyzerService создает новый сервис анализатора
func NewAnalyzerService(
	registry []ModelEntry,
	detector Detector,
	weather WeatherProvider,
	solarCalc *solar.Calculator,
	normalizer *imaging.Normalizer,
	pool *worker.Pool,
	logger *logrus.Logger,
	confidenceThreshold float64,
	detectorTimeout time.Duration,
) *AnalyzerService {
	return &AnalyzerService{
		registry:            registry,
		detector:            detector,
		weather:             weather,
		solarCalc:           solarCalc,
		normalizer:          normalizer,
		pool:                pool,
		logger:              logger,
		confidenceThreshold: confidenceThreshold,
		detectorTimeout:     detectorTimeout,
	}
}

// Analyze выполняет полный конвейер анализа одного запроса:
// нормализация изображения, параллельная детекция препятствий,
// маска занятости, положение солнца, погода (fail-soft) и итоговые оценки.
func (s *AnalyzerService) Analyze(ctx context.Context, request models.AnalyzeRequest) (*models.AnalysisReport, error) {
	reportID := uuid.New().String()
	log := s.logger.WithField("report_id", reportID)

	log.Info("Начинаем анализ размещения солнечных панелей")
	startTime := time.Now()

	// 1. Нормализуем изображение
	img, err := s.normalize(request)
	if err != nil {
		log.Errorf("Ошибка нормализации изображения: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	log.Infof("Изображение нормализовано: %dx%d", width, height)

	// 2. Погоду запрашиваем параллельно с детекцией.
	// Контракт fail-soft: любая ошибка превращается в отсутствие данных.
	weatherCh := make(chan *models.WeatherSnapshot, 1)
	if err := s.pool.Submit(func() {
		snapshot, werr := s.weather.Current(ctx, request.Latitude, request.Longitude)
		if werr != nil {
			log.Warnf("Не удалось получить данные о погоде: %v", werr)
			weatherCh <- nil
			return
		}
		weatherCh <- snapshot
	}); err != nil {
		log.Warnf("Не удалось поставить запрос погоды в пул: %v", err)
		weatherCh <- nil
	}

	// 3. Запускаем детекторы параллельно с барьерной синхронизацией
	obstructions, err := s.runDetectors(ctx, img, log)
	if err != nil {
		return nil, err
	}

	inferenceTime := time.Since(startTime)
	log.Infof("Инференс завершен за %v: найдено %d препятствий", inferenceTime, len(obstructions))

	// 4. Растеризуем детекции в маску занятости
	mask := imaging.NewMask(width, height)
	for _, obs := range obstructions {
		mask.Fill(obs.BBox[0], obs.BBox[1], obs.BBox[2], obs.BBox[3])
	}
	freePercent := mask.FreePercent()

	// 5. Вычисляем положение солнца и рекомендации
	altitude, azimuth := s.solarCalc.Position(request.Latitude, request.Longitude, request.Time)

	orientationDeg := round2(azimuth)
	orientationDir := s.solarCalc.Direction(orientationDeg)
	tilt := s.solarCalc.Tilt(request.Latitude, altitude)

	// 6. Составные оценки: эвристики, а не физическая модель облученности
	solarIndex := clampInt(int(math.Round(100-freePercent*0.2)), 10, 100)
	exposureHours := clampFloat(math.Round(altitude/15*10)/10, 2, 12)

	// 7. Дожидаемся ветку погоды и собираем отчет
	weather := <-weatherCh

	report := &models.AnalysisReport{
		ReportID:                   reportID,
		Obstructions:               obstructions,
		RecommendedFreeAreaPercent: freePercent,
		SunAltitude:                round2(altitude),
		SunAzimuth:                 round2(azimuth),
		SuggestedTiltAngle:         tilt,
		SuggestedOrientationDeg:    orientationDeg,
		SuggestedOrientationDir:    orientationDir,
		Message:                    fmt.Sprintf("Place panels in largest shadow-free zones facing %s with tilt %.1f°!", orientationDir, tilt),
		Weather:                    weather,
		SolarIndex:                 solarIndex,
		ExposureHours:              exposureHours,
		Latitude:                   request.Latitude,
		Longitude:                  request.Longitude,
	}

	log.Infof("Анализ завершен за %v. Свободная площадь: %.2f%%", time.Since(startTime), freePercent)
	return report, nil
}

// normalize декодирует изображение из файла или data URI камеры
func (s *AnalyzerService) normalize(request models.AnalyzeRequest) (*image.NRGBA, error) {
	if len(request.ImageData) > 0 {
		return s.normalizer.Normalize(request.ImageData)
	}
	return s.normalizer.NormalizeDataURI(request.CameraImage)
}

// runDetectors выполняет параллельный вызов всех детекторов реестра через
// общий пул и возвращает объединение принятых детекций. Ошибка любого
// детектора (включая таймаут) фатальна для всего запроса.
// Порядок детекций в результате не гарантируется.
func (s *AnalyzerService) runDetectors(ctx context.Context, img *image.NRGBA, log *logrus.Entry) ([]models.Detection, error) {
	pngData, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	obstructions := make([]models.Detection, 0)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	for _, entry := range s.registry {
		entry := entry
		wg.Add(1)

		task := func() {
			defer wg.Done()

			dctx, cancel := context.WithTimeout(ctx, s.detectorTimeout)
			defer cancel()

			boxes, derr := s.detector.Detect(dctx, entry.Model, pngData)

			mu.Lock()
			defer mu.Unlock()

			if derr != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("детектор %s: %w", entry.Label, derr)
				}
				return
			}

			// Порог включительный: уверенность ровно 0.5 принимается
			for _, box := range boxes {
				if box.Confidence >= s.confidenceThreshold {
					obstructions = append(obstructions, models.Detection{
						Label:      entry.Label,
						Confidence: round3(box.Confidence),
						BBox:       box.BBox,
					})
				}
			}
		}

		if serr := s.pool.Submit(task); serr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("детектор %s: %w", entry.Label, serr)
			}
			mu.Unlock()
		}
	}

	wg.Wait()

	if firstErr != nil {
		log.Errorf("Ошибка инференса: %v", firstErr)
		return nil, fmt.Errorf("%w: %v", ErrInference, firstErr)
	}

	return obstructions, nil
}

// CheckHealth проверяет состояние сервиса и inference-сервиса моделей
func (s *AnalyzerService) CheckHealth(ctx context.Context) *models.HealthResponse {
	s.logger.Debug("Проверяем состояние сервиса анализатора")

	if err := s.detector.CheckHealth(ctx); err != nil {
		s.logger.Errorf("Inference-сервис недоступен: %v", err)
		return &models.HealthResponse{
			Status:          "unhealthy",
			ModelsAvailable: false,
			Version:         "1.0.0",
		}
	}

	return &models.HealthResponse{
		Status:          "healthy",
		ModelsAvailable: true,
		Version:         "1.0.0",
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

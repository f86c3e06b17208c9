package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"solar-planner-go/internal/imaging"
	"solar-planner-go/internal/solar"
	"solar-planner-go/internal/worker"
	"solar-planner-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// fakeDetector детерминированная замена inference-сервиса
type fakeDetector struct {
	mu       sync.Mutex
	boxes    map[string][]models.RawBox
	delays   map[string]time.Duration
	errModel string
	calls    []string
}

func (f *fakeDetector) Detect(ctx context.Context, model string, imagePNG []byte) ([]models.RawBox, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	delay := f.delays[model]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if model == f.errModel {
		return nil, errors.New("модель упала")
	}

	return f.boxes[model], nil
}

func (f *fakeDetector) CheckHealth(ctx context.Context) error {
	return nil
}

// fakeWeather детерминированная замена погодного сервиса
type fakeWeather struct {
	snapshot *models.WeatherSnapshot
	err      error
}

func (f *fakeWeather) Current(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testImagePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("ошибка кодирования тестового PNG: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, detector Detector, weather WeatherProvider) *AnalyzerService {
	t.Helper()

	logger := testLogger()
	pool, err := worker.NewPool(8, logger)
	if err != nil {
		t.Fatalf("ошибка создания пула: %v", err)
	}
	t.Cleanup(pool.Release)

	return NewAnalyzerService(
		DefaultRegistry(),
		detector,
		weather,
		solar.NewCalculator(),
		imaging.NewNormalizer(480),
		pool,
		logger,
		0.5,
		5*time.Second,
	)
}

func testRequest(t *testing.T, width, height int) models.AnalyzeRequest {
	return models.AnalyzeRequest{
		ImageData: testImagePNG(t, width, height),
		Latitude:  51.5,
		Longitude: -0.12,
		Time:      time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC),
	}
}

func sortDetections(detections []models.Detection) {
	sort.Slice(detections, func(i, j int) bool {
		if detections[i].Label != detections[j].Label {
			return detections[i].Label < detections[j].Label
		}
		return detections[i].BBox[0] < detections[j].BBox[0]
	})
}

func TestAnalyzeNoDetections(t *testing.T) {
	detector := &fakeDetector{boxes: map[string][]models.RawBox{}}
	weather := &fakeWeather{snapshot: &models.WeatherSnapshot{TempC: 21, Condition: "Sunny"}}
	svc := newTestService(t, detector, weather)

	report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if report.RecommendedFreeAreaPercent != 100.00 {
		t.Errorf("свободная площадь = %v, ожидалось ровно 100.00", report.RecommendedFreeAreaPercent)
	}
	if len(report.Obstructions) != 0 {
		t.Errorf("список препятствий не пуст: %v", report.Obstructions)
	}
	if report.Weather == nil || report.Weather.Condition != "Sunny" {
		t.Errorf("погода не попала в отчет: %+v", report.Weather)
	}
	if report.ReportID == "" {
		t.Error("отчет без report_id")
	}

	// Все четыре детектора были вызваны
	if len(detector.calls) != 4 {
		t.Errorf("вызвано %d детекторов, ожидалось 4", len(detector.calls))
	}
}

func TestAnalyzeFreeAreaAndScores(t *testing.T) {
	// Рамка закрывает левую половину изображения 100x100
	detector := &fakeDetector{boxes: map[string][]models.RawBox{
		"tree_best": {{Confidence: 0.9, BBox: [4]int{0, 0, 50, 100}}},
	}}
	svc := newTestService(t, detector, &fakeWeather{})

	report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if report.RecommendedFreeAreaPercent != 50.00 {
		t.Errorf("свободная площадь = %v, ожидалось 50.00", report.RecommendedFreeAreaPercent)
	}

	// solar_index = clamp(round(100 - 50*0.2), 10, 100) = 90
	if report.SolarIndex != 90 {
		t.Errorf("solar_index = %v, ожидалось 90", report.SolarIndex)
	}

	if report.ExposureHours < 2 || report.ExposureHours > 12 {
		t.Errorf("exposure_hours = %v вне диапазона [2, 12]", report.ExposureHours)
	}

	if len(report.Obstructions) != 1 || report.Obstructions[0].Label != "tree" {
		t.Errorf("препятствия = %+v, ожидалась одна метка tree", report.Obstructions)
	}
}

func TestAnalyzeFullCover(t *testing.T) {
	detector := &fakeDetector{boxes: map[string][]models.RawBox{
		"roof_best": {{Confidence: 0.8, BBox: [4]int{0, 0, 100, 100}}},
	}}
	svc := newTestService(t, detector, &fakeWeather{})

	report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if report.RecommendedFreeAreaPercent != 0.00 {
		t.Errorf("свободная площадь = %v, ожидалось ровно 0.00", report.RecommendedFreeAreaPercent)
	}
}

func TestAnalyzeConfidenceThreshold(t *testing.T) {
	// Порог включительный: 0.5 принимается, 0.4999 отбрасывается
	detector := &fakeDetector{boxes: map[string][]models.RawBox{
		"pole_best": {
			{Confidence: 0.5, BBox: [4]int{0, 0, 10, 10}},
			{Confidence: 0.4999, BBox: [4]int{20, 20, 30, 30}},
		},
	}}
	svc := newTestService(t, detector, &fakeWeather{})

	report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if len(report.Obstructions) != 1 {
		t.Fatalf("принято %d детекций, ожидалась 1", len(report.Obstructions))
	}
	if report.Obstructions[0].Confidence != 0.5 {
		t.Errorf("принята детекция с уверенностью %v, ожидалось 0.5", report.Obstructions[0].Confidence)
	}
}

func TestAnalyzeWeatherFailureIsSoft(t *testing.T) {
	detector := &fakeDetector{boxes: map[string][]models.RawBox{}}
	weather := &fakeWeather{err: errors.New("таймаут погодного сервиса")}
	svc := newTestService(t, detector, weather)

	report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err != nil {
		t.Fatalf("ошибка погоды не должна прерывать анализ: %v", err)
	}

	if report.Weather != nil {
		t.Errorf("weather = %+v, ожидался nil", report.Weather)
	}
	if report.RecommendedFreeAreaPercent != 100.00 {
		t.Errorf("остальные поля должны заполняться как обычно, свободная площадь = %v", report.RecommendedFreeAreaPercent)
	}
}

func TestAnalyzeDetectorFailureIsFatal(t *testing.T) {
	detector := &fakeDetector{
		boxes:    map[string][]models.RawBox{},
		errModel: "tank_best",
	}
	svc := newTestService(t, detector, &fakeWeather{})

	_, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
	if err == nil {
		t.Fatal("ошибка детектора должна прерывать запрос целиком")
	}
	if !errors.Is(err, ErrInference) {
		t.Errorf("err = %v, ожидался ErrInference", err)
	}
}

func TestAnalyzeInvalidImage(t *testing.T) {
	svc := newTestService(t, &fakeDetector{}, &fakeWeather{})

	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		ImageData: []byte("не изображение"),
		Time:      time.Now().UTC(),
	})
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("err = %v, ожидался ErrInvalidImage", err)
	}
}

func TestAnalyzeOrderIndependence(t *testing.T) {
	boxes := map[string][]models.RawBox{
		"pole_best": {{Confidence: 0.7, BBox: [4]int{0, 0, 10, 10}}},
		"tank_best": {{Confidence: 0.8, BBox: [4]int{20, 0, 40, 20}}},
		"roof_best": {{Confidence: 0.9, BBox: [4]int{50, 50, 80, 80}}},
		"tree_best": {{Confidence: 0.6, BBox: [4]int{5, 5, 25, 25}}},
	}

	// Меняем порядок завершения детекторов задержками
	run := func(delays map[string]time.Duration) *models.AnalysisReport {
		detector := &fakeDetector{boxes: boxes, delays: delays}
		svc := newTestService(t, detector, &fakeWeather{})

		report, err := svc.Analyze(context.Background(), testRequest(t, 100, 100))
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		return report
	}

	first := run(map[string]time.Duration{"pole_best": 40 * time.Millisecond, "tree_best": 20 * time.Millisecond})
	second := run(map[string]time.Duration{"roof_best": 40 * time.Millisecond, "tank_best": 20 * time.Millisecond})

	sortDetections(first.Obstructions)
	sortDetections(second.Obstructions)

	if !reflect.DeepEqual(first.Obstructions, second.Obstructions) {
		t.Errorf("мультимножества детекций различаются:\n%v\n%v", first.Obstructions, second.Obstructions)
	}
	if first.RecommendedFreeAreaPercent != second.RecommendedFreeAreaPercent {
		t.Errorf("свободная площадь различается: %v != %v",
			first.RecommendedFreeAreaPercent, second.RecommendedFreeAreaPercent)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	boxes := map[string][]models.RawBox{
		"tree_best": {{Confidence: 0.85, BBox: [4]int{10, 10, 60, 60}}},
	}
	snapshot := &models.WeatherSnapshot{TempC: 18, Condition: "Cloudy", Cloud: 75}

	run := func() *models.AnalysisReport {
		detector := &fakeDetector{boxes: boxes}
		svc := newTestService(t, detector, &fakeWeather{snapshot: snapshot})

		report, err := svc.Analyze(context.Background(), testRequest(t, 120, 90))
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		return report
	}

	first := run()
	second := run()

	// Отчеты совпадают полностью, кроме уникального идентификатора
	first.ReportID = ""
	second.ReportID = ""
	if !reflect.DeepEqual(first, second) {
		t.Errorf("повторный запуск дал другой отчет:\n%+v\n%+v", first, second)
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	wantLabels := []string{"pole", "tank", "roof", "tree"}
	if len(registry) != len(wantLabels) {
		t.Fatalf("в реестре %d моделей, ожидалось %d", len(registry), len(wantLabels))
	}

	for i, entry := range registry {
		if entry.Label != wantLabels[i] {
			t.Errorf("registry[%d].Label = %q, ожидалось %q", i, entry.Label, wantLabels[i])
		}
		if entry.Model == "" {
			t.Errorf("registry[%d] без имени модели", i)
		}
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"solar-planner-go/pkg/models"
)

// fakeTextGen замена внешнего сервиса генерации текста
type fakeTextGen struct {
	text string
	err  error
}

func (f *fakeTextGen) Generate(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestBuildPrompt(t *testing.T) {
	svc := NewReportService(&fakeTextGen{}, testLogger())

	prompt := svc.BuildPrompt(models.RecommendRequest{
		FreeArea:       72.5,
		Tilt:           28.0,
		OrientationDir: "South",
		OrientationDeg: 180.25,
		Latitude:       40.7128,
		Longitude:      -74.006,
		Weather:        &models.WeatherSnapshot{Condition: "Partly cloudy"},
	})

	for _, want := range []string{"72.50%", "28.0 degrees", "South", "Partly cloudy", "expert solar consultant"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("в промпте нет %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptWithoutWeather(t *testing.T) {
	svc := NewReportService(&fakeTextGen{}, testLogger())

	prompt := svc.BuildPrompt(models.RecommendRequest{OrientationDir: "East"})

	if !strings.Contains(prompt, "Weather: N/A") {
		t.Errorf("без погоды ожидалось Weather: N/A:\n%s", prompt)
	}
}

func TestRecommendFailSoft(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeTextGen
		want string
	}{
		{"успешная генерация", &fakeTextGen{text: "Install panels facing South."}, "Install panels facing South."},
		{"ошибка сервиса дает запасной текст", &fakeTextGen{err: errors.New("quota exceeded")}, fallbackRecommendation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewReportService(tt.gen, testLogger())

			got := svc.Recommend(context.Background(), models.RecommendRequest{})
			if got != tt.want {
				t.Errorf("Recommend = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}

func TestBuildPDF(t *testing.T) {
	svc := NewReportService(&fakeTextGen{}, testLogger())

	data, err := svc.BuildPDF(models.DownloadReportRequest{
		Results: []models.ReportResult{
			{
				Latitude:       40.71,
				Longitude:      -74.0,
				FreeArea:       84.2,
				Tilt:           28.0,
				OrientationDir: "South",
				OrientationDeg: 180.5,
				Weather:        &models.WeatherSnapshot{Condition: "Sunny", TempC: 25},
			},
			{
				Latitude:       55.75,
				Longitude:      37.61,
				FreeArea:       61.0,
				Tilt:           39.0,
				OrientationDir: "Southeast",
				OrientationDeg: 140.0,
			},
		},
		AISummary: "Keep panels clear of the tree line.\nClean quarterly.",
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("результат не похож на PDF документ")
	}
}

func TestBuildPDFEmptyResults(t *testing.T) {
	svc := NewReportService(&fakeTextGen{}, testLogger())

	data, err := svc.BuildPDF(models.DownloadReportRequest{AISummary: "N/A"})
	if err != nil {
		t.Fatalf("пустой список результатов не должен быть ошибкой: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("результат не похож на PDF документ")
	}
}

func TestBuildPDFSkipsBrokenThumbnail(t *testing.T) {
	svc := NewReportService(&fakeTextGen{}, testLogger())

	data, err := svc.BuildPDF(models.DownloadReportRequest{
		Results: []models.ReportResult{
			{FreeArea: 90, OrientationDir: "South", ImageBase64: "data:image/png;base64,@@@битый@@@"},
		},
	})
	if err != nil {
		t.Fatalf("битый снимок не должен ронять отчет: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("результат не похож на PDF документ")
	}
}

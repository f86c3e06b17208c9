package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"

	"solar-planner-go/internal/imaging"
	"solar-planner-go/pkg/models"
)

// fallbackRecommendation возвращается при любой ошибке генерации текста
const fallbackRecommendation = "Could not generate recommendations at this time."

// TextGenerator интерфейс внешнего сервиса генерации текста
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReportService сервис текстовых рекомендаций и PDF-отчетов
type ReportService struct {
	textGen TextGenerator
	logger  *logrus.Logger
}

// NewReportService создает новый сервис отчетов
func NewReportService(textGen TextGenerator, logger *logrus.Logger) *ReportService {
	return &ReportService{
		textGen: textGen,
		logger:  logger,
	}
}

// BuildPrompt собирает промпт солнечного консультанта из полей отчета
func (s *ReportService) BuildPrompt(request models.RecommendRequest) string {
	condition := "N/A"
	if request.Weather != nil && request.Weather.Condition != "" {
		condition = request.Weather.Condition
	}

	return fmt.Sprintf(`
You are an expert solar consultant. Based on this data:
- Free area: %.2f%%
- Tilt: %.1f degrees
- Orientation: %s (%.2f degrees)
- Location: %.4f°N, %.4f°W
- Weather: %s

Provide a **concise (max 100 words)**, **clear**, **well-formatted** set of recommendations in bullet points without asterisks or extra markdown.
`,
		request.FreeArea,
		request.Tilt,
		request.OrientationDir,
		request.OrientationDeg,
		request.Latitude,
		request.Longitude,
		condition,
	)
}

// Recommend генерирует текстовые рекомендации. Контракт fail-soft:
// при ошибке внешнего сервиса возвращается фиксированный текст, не ошибка.
func (s *ReportService) Recommend(ctx context.Context, request models.RecommendRequest) string {
	prompt := s.BuildPrompt(request)

	text, err := s.textGen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Errorf("Ошибка генерации рекомендаций: %v", err)
		return fallbackRecommendation
	}

	return text
}

// BuildPDF формирует PDF-отчет по списку результатов анализа.
// Результаты приходят в теле запроса: сервер не хранит состояние между
// запросами.
func (s *ReportService) BuildPDF(request models.DownloadReportRequest) ([]byte, error) {
	s.logger.Infof("Формируем PDF-отчет: %d результатов", len(request.Results))

	pdf := gofpdf.New("P", "mm", "A4", "")
	// Транслятор нужен для знака градуса в базовых шрифтах
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "EcoVision Solar Placement Report")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)

	for i, result := range request.Results {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		pdf.Cell(0, 7, tr(fmt.Sprintf("Location: %.4f°N, %.4f°W", result.Latitude, result.Longitude)))
		pdf.Ln(7)

		if result.Weather != nil {
			pdf.Cell(0, 7, tr(fmt.Sprintf("Weather: %s, %.1f°C", result.Weather.Condition, result.Weather.TempC)))
			pdf.Ln(7)
		}

		pdf.Cell(0, 7, tr(fmt.Sprintf("Result %d: Free Area %.2f%%, Tilt %.1f°, Orientation %s (%.2f°)",
			i+1, result.FreeArea, result.Tilt, result.OrientationDir, result.OrientationDeg)))
		pdf.Ln(7)

		s.embedThumbnail(pdf, i, result.ImageBase64)
		pdf.Ln(4)
	}

	// Итоговые рекомендации
	if pdf.GetY() > 230 {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "AI Recommendations Summary")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(request.AISummary), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ошибка формирования PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// embedThumbnail добавляет уменьшенный снимок результата, если он передан.
// Битые снимки пропускаются: отчет важнее одной картинки.
func (s *ReportService) embedThumbnail(pdf *gofpdf.Fpdf, index int, dataURI string) {
	if dataURI == "" {
		return
	}

	raw, err := imaging.DecodeDataURI(dataURI)
	if err != nil {
		s.logger.Warnf("Не удалось раскодировать снимок для PDF: %v", err)
		return
	}

	thumb, err := imaging.Thumbnail(raw, 200, 150)
	if err != nil {
		s.logger.Warnf("Не удалось подготовить миниатюру для PDF: %v", err)
		return
	}

	name := fmt.Sprintf("result-%d", index+1)
	options := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(thumb))
	pdf.ImageOptions(name, 10, 0, 70, 0, true, options, 0, "")
}

package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Регистрируем декодер GIF
	_ "image/jpeg" // Регистрируем декодер JPEG
	_ "image/png"  // Регистрируем декодер PNG
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Регистрируем декодер BMP
	_ "golang.org/x/image/tiff" // Регистрируем декодер TIFF
	_ "golang.org/x/image/webp" // Регистрируем декодер WebP
)

// Normalizer приводит входные изображения к рабочему размеру.
// Изображения с большей стороной свыше maxDim уменьшаются с сохранением
// пропорций, меньшие остаются без изменений.
type Normalizer struct {
	maxDim int
}

// NewNormalizer создает новый нормализатор изображений
func NewNormalizer(maxDim int) *Normalizer {
	return &Normalizer{maxDim: maxDim}
}

// Normalize декодирует сырые байты изображения и уменьшает до рабочего размера
func (n *Normalizer) Normalize(raw []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение: %w", err)
	}
	return n.fit(img), nil
}

// NormalizeDataURI декодирует снимок с камеры из base64 data URI
func (n *Normalizer) NormalizeDataURI(dataURI string) (*image.NRGBA, error) {
	raw, err := DecodeDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	return n.Normalize(raw)
}

// fit уменьшает изображение так, чтобы большая сторона была не больше maxDim.
// NearestNeighbor выбран намеренно: скорость важнее качества при даунскейле
// перед инференсом.
func (n *Normalizer) fit(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= n.maxDim && b.Dy() <= n.maxDim {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, n.maxDim, n.maxDim, imaging.NearestNeighbor)
}

// DecodeDataURI извлекает сырые байты изображения из base64 data URI
// вида "data:image/png;base64,...."
func DecodeDataURI(dataURI string) ([]byte, error) {
	_, encoded, found := strings.Cut(dataURI, ",")
	if !found {
		return nil, fmt.Errorf("некорректный data URI: отсутствует разделитель запятая")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("некорректный data URI: %w", err)
	}

	return raw, nil
}

// Thumbnail декодирует изображение и возвращает PNG-миниатюру,
// вписанную в рамку maxW x maxH с сохранением пропорций
func Thumbnail(raw []byte, maxW, maxH int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение: %w", err)
	}
	return EncodePNG(imaging.Fit(img, maxW, maxH, imaging.Lanczos))
}

// EncodePNG кодирует изображение в PNG для отправки в inference-сервис
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("ошибка кодирования PNG: %w", err)
	}
	return buf.Bytes(), nil
}

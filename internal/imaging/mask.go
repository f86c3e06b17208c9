package imaging

import "math"

// Mask бинарная маска занятых пикселей поверх нормализованного изображения.
// Заполняется ровно один раз на каждую детекцию, после чего только читается.
type Mask struct {
	width  int
	height int
	data   []byte
}

// NewMask создает нулевую маску заданного размера
func NewMask(width, height int) *Mask {
	return &Mask{
		width:  width,
		height: height,
		data:   make([]byte, width*height),
	}
}

// Fill помечает прямоугольник рамки как занятый. Координаты за границами
// изображения обрезаются. Повторное заполнение пикселя идемпотентно.
func (m *Mask) Fill(x1, y1, x2, y2 int) {
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > m.width {
		x2 = m.width
	}
	if y2 > m.height {
		y2 = m.height
	}

	for y := y1; y < y2; y++ {
		row := m.data[y*m.width : y*m.width+m.width]
		for x := x1; x < x2; x++ {
			row[x] = 1
		}
	}
}

// OccupiedCount возвращает количество занятых пикселей
func (m *Mask) OccupiedCount() int {
	count := 0
	for _, v := range m.data {
		if v != 0 {
			count++
		}
	}
	return count
}

// FreePercent возвращает процент свободной площади [0,100],
// округленный до 2 знаков. Маска без детекций дает ровно 100.00.
func (m *Mask) FreePercent() float64 {
	total := m.width * m.height
	if total == 0 {
		return 0
	}

	free := total - m.OccupiedCount()
	percent := float64(free) / float64(total) * 100

	return math.Round(percent*100) / 100
}

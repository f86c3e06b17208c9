package solar

import (
	"math"
	"time"
)

// Calculator для расчета положения солнца и рекомендаций по панелям
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// direction пара "опорный азимут — сторона света".
// 0 и 360 перечислены оба, иначе азимуты около 359 градусов
// ошибочно попадали бы в Northwest.
type direction struct {
	deg  float64
	name string
}

var directions = []direction{
	{0, "North"}, {45, "Northeast"},
	{90, "East"}, {135, "Southeast"},
	{180, "South"}, {225, "Southwest"},
	{270, "West"}, {315, "Northwest"}, {360, "North"},
}

// Position вычисляет высоту и азимут солнца для точки и момента времени.
// Используется алгоритм NOAA: точность порядка долей градуса,
// достаточная для рекомендаций по размещению панелей.
// Азимут отсчитывается по часовой стрелке от севера, [0, 360).
func (c *Calculator) Position(lat, lon float64, t time.Time) (altitude, azimuth float64) {
	t = t.UTC()

	jd := julianDay(t)
	jc := (jd - 2451545.0) / 36525.0

	// Средняя долгота и аномалия солнца
	meanLong := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	if meanLong < 0 {
		meanLong += 360
	}
	meanAnom := 357.52911 + jc*(35999.05029-0.0001537*jc)
	eccent := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	// Уравнение центра и видимая долгота
	eqCtr := math.Sin(rad(meanAnom))*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(rad(2*meanAnom))*(0.019993-0.000101*jc) +
		math.Sin(rad(3*meanAnom))*0.000289
	trueLong := meanLong + eqCtr
	appLong := trueLong - 0.00569 - 0.00478*math.Sin(rad(125.04-1934.136*jc))

	// Наклон эклиптики и склонение солнца
	meanObliq := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	obliqCorr := meanObliq + 0.00256*math.Cos(rad(125.04-1934.136*jc))
	declin := deg(math.Asin(math.Sin(rad(obliqCorr)) * math.Sin(rad(appLong))))

	// Уравнение времени в минутах
	vary := math.Tan(rad(obliqCorr/2)) * math.Tan(rad(obliqCorr/2))
	eqTime := 4 * deg(vary*math.Sin(2*rad(meanLong))-
		2*eccent*math.Sin(rad(meanAnom))+
		4*eccent*vary*math.Sin(rad(meanAnom))*math.Cos(2*rad(meanLong))-
		0.5*vary*vary*math.Sin(4*rad(meanLong))-
		1.25*eccent*eccent*math.Sin(2*rad(meanAnom)))

	// Истинное солнечное время и часовой угол
	minutes := float64(t.Hour())*60 + float64(t.Minute()) + float64(t.Second())/60
	trueSolarTime := math.Mod(minutes+eqTime+4*lon, 1440)
	if trueSolarTime < 0 {
		trueSolarTime += 1440
	}

	hourAngle := trueSolarTime/4 - 180
	if trueSolarTime/4 < 0 {
		hourAngle = trueSolarTime/4 + 180
	}

	// Зенитный угол и высота
	cosZenith := math.Sin(rad(lat))*math.Sin(rad(declin)) +
		math.Cos(rad(lat))*math.Cos(rad(declin))*math.Cos(rad(hourAngle))
	cosZenith = clamp(cosZenith, -1, 1)
	zenith := deg(math.Acos(cosZenith))
	altitude = 90 - zenith

	// Азимут по часовой стрелке от севера
	denom := math.Cos(rad(lat)) * math.Sin(rad(zenith))
	if math.Abs(denom) < 1e-9 {
		// Солнце в зените или наблюдатель на полюсе
		return altitude, 0
	}

	cosAz := (math.Sin(rad(lat))*math.Cos(rad(zenith)) - math.Sin(rad(declin))) / denom
	cosAz = clamp(cosAz, -1, 1)
	az := deg(math.Acos(cosAz))

	if hourAngle > 0 {
		azimuth = math.Mod(az+180, 360)
	} else {
		azimuth = math.Mod(540-az, 360)
	}

	return altitude, azimuth
}

// Direction возвращает ближайшую сторону света для азимута.
// При равном расстоянии выбирается опорный угол с меньшим значением.
func (c *Calculator) Direction(azimuth float64) string {
	closest := directions[0]
	closestDiff := math.Abs(azimuth - closest.deg)

	for _, d := range directions[1:] {
		if diff := math.Abs(azimuth - d.deg); diff < closestDiff {
			closest = d
			closestDiff = diff
		}
	}

	return closest.name
}

// Tilt возвращает рекомендуемый угол наклона панелей.
// Эвристика: при высоком солнце наклон уменьшается до 0.7 широты,
// но не меньше 10 градусов; иначе наклон равен широте.
func (c *Calculator) Tilt(lat, altitude float64) float64 {
	if altitude > 45 {
		return math.Max(10, round1(lat*0.7))
	}
	return round1(lat)
}

// julianDay вычисляет юлианскую дату с дробной частью суток
func julianDay(t time.Time) float64 {
	year, month, day := t.Year(), int(t.Month()), t.Day()
	if month <= 2 {
		year--
		month += 12
	}

	a := year / 100
	b := 2 - a + a/4

	jd := math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5

	dayFraction := (float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600) / 24
	return jd + dayFraction
}

func rad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func deg(radians float64) float64 {
	return radians * 180 / math.Pi
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

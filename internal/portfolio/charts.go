package portfolio

import (
	"math"
	"math/rand"
	"time"
)

// ChartPoint 时间序列图表中的一个点。
type ChartPoint struct {
	XAxis int64   `json:"x"` // unix时间戳 (秒)
	YAxis float64 `json:"y"`
}

// Range 图表区间
type Range string

const (
	RangeDay   Range = "1d"
	RangeWeek  Range = "1w"
	RangeMonth Range = "1m"
	RangeYear  Range = "1y"
)

// ParseRange 解析区间参数，未知值回落到 RangeDay。
func ParseRange(v string) Range {
	switch Range(v) {
	case RangeDay, RangeWeek, RangeMonth, RangeYear:
		return Range(v)
	default:
		return RangeDay
	}
}

// curveSpec 单个区间的曲线参数。振幅为基准值的比例，周期以点数计。
// 常数经过手工调校，目的只是让合成曲线在UI里显得像真实行情。
type curveSpec struct {
	points       int
	step         time.Duration
	drift        float64 // 整段区间的线性漂移幅度
	wave1Amp     float64
	wave1Periods float64 // 整段区间内的完整波数
	wave2Amp     float64
	wave2Periods float64
	jitterAmp    float64
}

var curveSpecs = map[Range]curveSpec{
	RangeDay:   {points: 96, step: 15 * time.Minute, drift: 0.012, wave1Amp: 0.008, wave1Periods: 2.2, wave2Amp: 0.003, wave2Periods: 7.5, jitterAmp: 0.0015},
	RangeWeek:  {points: 84, step: 2 * time.Hour, drift: 0.03, wave1Amp: 0.018, wave1Periods: 3.1, wave2Amp: 0.006, wave2Periods: 11, jitterAmp: 0.003},
	RangeMonth: {points: 90, step: 8 * time.Hour, drift: 0.06, wave1Amp: 0.035, wave1Periods: 2.6, wave2Amp: 0.012, wave2Periods: 9, jitterAmp: 0.006},
	RangeYear:  {points: 104, step: 84 * time.Hour, drift: 0.22, wave1Amp: 0.09, wave1Periods: 1.8, wave2Amp: 0.03, wave2Periods: 6.3, jitterAmp: 0.012},
}

// BalanceSeries 生成余额曲线：以 base 为终值，向过去回推出一条
// 漂移+双正弦+抖动的合成序列。同一 seed 和区间产生完全相同的曲线。
func BalanceSeries(base float64, seed int64, r Range) []ChartPoint {
	spec := curveSpecs[r]
	return generateSeries(base, seed, r, spec, time.Now())
}

// PNLSeries 生成盈亏曲线：终值为当前盈亏，过去的点围绕零轴摆动。
// 与余额曲线共用生成器，但以振幅绝对化避免盈亏接近零时曲线塌成直线。
func PNLSeries(current float64, base float64, seed int64, r Range) []ChartPoint {
	spec := curveSpecs[r]
	amplitude := math.Abs(base)
	if amplitude < 1 {
		amplitude = 1
	}

	// 盈亏曲线用独立的种子空间，避免与余额曲线形状重合
	series := generateSeries(amplitude, seed^0x5eed, r, spec, time.Now())

	// 平移序列：把生成曲线的终值对齐到当前盈亏
	offset := current - (series[len(series)-1].YAxis - amplitude)
	for i := range series {
		series[i].YAxis = series[i].YAxis - amplitude + offset
	}
	series[len(series)-1].YAxis = current
	return series
}

// generateSeries 确定性地生成一段曲线，终点为 endAt、终值为 base。
func generateSeries(base float64, seed int64, r Range, spec curveSpec, endAt time.Time) []ChartPoint {
	rng := rand.New(rand.NewSource(seed ^ rangeSalt(r)))

	n := spec.points
	series := make([]ChartPoint, n)
	start := endAt.Add(-time.Duration(n-1) * spec.step)

	// 相位随机，让不同种子的曲线起伏位置不同
	phase1 := rng.Float64() * 2 * math.Pi
	phase2 := rng.Float64() * 2 * math.Pi
	direction := 1.0
	if rng.Float64() < 0.45 {
		direction = -1 // 一部分曲线整体向下，显得更真实
	}

	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n-1)

		drift := direction * spec.drift * (progress - 1)
		wave1 := spec.wave1Amp * math.Sin(2*math.Pi*spec.wave1Periods*progress+phase1)
		wave2 := spec.wave2Amp * math.Sin(2*math.Pi*spec.wave2Periods*progress+phase2)
		jitter := spec.jitterAmp * (rng.Float64()*2 - 1)

		value := base * (1 + drift + wave1 + wave2 + jitter)
		series[i] = ChartPoint{
			XAxis: start.Add(time.Duration(i) * spec.step).Unix(),
			YAxis: value,
		}
	}

	// 终点锚定到真实当前值
	series[n-1] = ChartPoint{XAxis: endAt.Unix(), YAxis: base}
	return series
}

// rangeSalt 每个区间一个固定盐值，保证同一种子下四条曲线形状互不相同。
func rangeSalt(r Range) int64 {
	switch r {
	case RangeWeek:
		return 7919
	case RangeMonth:
		return 104729
	case RangeYear:
		return 1299709
	default:
		return 541
	}
}

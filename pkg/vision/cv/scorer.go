package cv

import (
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// FlatEnergyEpsilon 每个参与计算的像素通道的最小能量
// 窗口（或模板）能量低于 n*通道数*FlatEnergyEpsilon 时视为纯色，得分取最小值 0。
const FlatEnergyEpsilon = 1.0

// PlainColorTolerance 纯色模板与窗口的均方根色差达到该值时得分为 0
const PlainColorTolerance = 64.0

// Score 计算 pattern 在 haystack 每个左上角位置的得分
// mask 可为 nil；非零像素参与相关和能量计算。
// 两幅图都是三通道时按彩色计算，否则统一转为灰度。
func Score(haystack, pattern, mask *ImageBuffer, mode MatchMode) (*ScoreMap, error) {
	if err := checkScoreInput(haystack, pattern, mask); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("未知的匹配模式: %v", mode)
	}
	gray := haystack.Channels() != 3 || pattern.Channels() != 3
	hay, err := prepareHaystack(haystack, gray)
	if err != nil {
		return nil, err
	}
	defer hay.Close()
	return hay.score(pattern, mask, mode, 1.0)
}

func checkScoreInput(haystack, pattern, mask *ImageBuffer) error {
	if haystack.Empty() {
		return ErrEmptyHaystack
	}
	if pattern.Empty() {
		return ErrEmptyImage
	}
	if err := checkHaystackLargerThanPattern(haystack.Width(), haystack.Height(), pattern.Width(), pattern.Height()); err != nil {
		return err
	}
	if mask != nil && (mask.Width() != pattern.Width() || mask.Height() != pattern.Height()) {
		return fmt.Errorf("%w: 掩码 %dx%d, 模板 %dx%d", ErrMaskSizeMismatch,
			mask.Width(), mask.Height(), pattern.Width(), pattern.Height())
	}
	return nil
}

// checkHaystackLargerThanPattern 检查源图像是否不小于模板
func checkHaystackLargerThanPattern(hw, hh, pw, ph int) error {
	if hw < pw || hh < ph {
		return &SizeError{
			HaystackSize: [2]int{hw, hh},
			PatternSize:  [2]int{pw, ph},
		}
	}
	return nil
}

// planes 按通道拆分的 float32 图像数据
type planes struct {
	width  int
	height int
	mats   []gocv.Mat
	data   [][]float32
}

func newPlanes(src gocv.Mat) (*planes, error) {
	f := gocv.NewMat()
	defer f.Close()
	src.ConvertTo(&f, gocv.MatTypeCV32F)
	if f.Empty() {
		return nil, fmt.Errorf("图像转换为浮点失败")
	}

	p := &planes{width: f.Cols(), height: f.Rows()}
	for _, m := range gocv.Split(f) {
		p.mats = append(p.mats, m)
		vals, err := m.DataPtrFloat32()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("读取通道数据失败: %w", err)
		}
		buf := make([]float32, len(vals))
		copy(buf, vals)
		p.data = append(p.data, buf)
	}
	return p, nil
}

func (p *planes) channels() int { return len(p.data) }

func (p *planes) Close() {
	for _, m := range p.mats {
		m.Close()
	}
	p.mats = nil
}

// haystack 预处理后的源图像，可被多个尺度并发只读使用
type haystack struct {
	*planes
	gray bool

	// 积分图，尺寸 (w+1)*(h+1)，float64 避免窗口能量相减时的精度损失
	sum   [][]float64
	sqsum [][]float64

	sqOnce  sync.Once
	squares []gocv.Mat
	sqErr   error
}

func prepareHaystack(img *ImageBuffer, gray bool) (*haystack, error) {
	src := img
	if gray && img.Channels() != 1 {
		g, err := img.ToGray()
		if err != nil {
			return nil, err
		}
		defer g.Close()
		src = g
	}

	p, err := newPlanes(src.Mat())
	if err != nil {
		return nil, err
	}
	h := &haystack{planes: p, gray: gray}
	for _, data := range p.data {
		s, sq := integral(data, p.width, p.height)
		h.sum = append(h.sum, s)
		h.sqsum = append(h.sqsum, sq)
	}
	return h, nil
}

func (h *haystack) Close() {
	h.planes.Close()
	for _, m := range h.squares {
		m.Close()
	}
	h.squares = nil
}

// squaredPlanes 掩码模式下需要逐像素平方后的通道
func (h *haystack) squaredPlanes() ([]gocv.Mat, error) {
	h.sqOnce.Do(func() {
		for _, m := range h.mats {
			sq := gocv.NewMat()
			gocv.Multiply(m, m, &sq)
			if sq.Empty() {
				sq.Close()
				h.sqErr = fmt.Errorf("计算平方图失败")
				return
			}
			h.squares = append(h.squares, sq)
		}
	})
	return h.squares, h.sqErr
}

// score 计算已缩放模板的得分图
func (h *haystack) score(pattern, mask *ImageBuffer, mode MatchMode, scale float64) (*ScoreMap, error) {
	pw, ph := pattern.Width(), pattern.Height()
	if err := checkHaystackLargerThanPattern(h.width, h.height, pw, ph); err != nil {
		return nil, err
	}

	patSrc := pattern
	if h.gray && pattern.Channels() != 1 {
		g, err := pattern.ToGray()
		if err != nil {
			return nil, err
		}
		defer g.Close()
		patSrc = g
	}
	pat, err := newPlanes(patSrc.Mat())
	if err != nil {
		return nil, err
	}
	defer pat.Close()
	if pat.channels() != h.channels() {
		return nil, fmt.Errorf("通道数不一致: 模板 %d, 源图像 %d", pat.channels(), h.channels())
	}

	weights, n, err := maskWeights(mask, pw, ph)
	if err != nil {
		return nil, err
	}
	channels := h.channels()
	flat := float64(n*channels) * FlatEnergyEpsilon

	// 模板统计量
	means := make([]float64, channels)
	var centered, squares float64
	for c := 0; c < channels; c++ {
		var s float64
		for i, v := range pat.data[c] {
			s += weights[i] * float64(v)
		}
		means[c] = s / float64(n)
		for i, v := range pat.data[c] {
			if weights[i] == 0 {
				continue
			}
			d := float64(v) - means[c]
			centered += d * d
			squares += float64(v) * float64(v)
		}
	}

	// 纯色模板的归一化相关处处无定义，改按色差计分
	if centered <= flat {
		return h.plainScore(means, centered, weights, n, pw, ph, scale)
	}
	effective := mode
	patEnergy := squares
	if mode == ModeCorrCoeffNormed {
		patEnergy = centered
	}

	rw, rh := h.width-pw+1, h.height-ph+1
	cross := make([]float64, rw*rh)
	winEnergy := make([]float64, rw*rh)
	templ := make([]float64, pw*ph)

	for c := 0; c < channels; c++ {
		for i, v := range pat.data[c] {
			if effective == ModeCorrCoeffNormed {
				templ[i] = weights[i] * (float64(v) - means[c])
			} else {
				templ[i] = weights[i] * float64(v)
			}
		}
		x, err := correlate(h.mats[c], templ, pw, ph, rw, rh)
		if err != nil {
			return nil, err
		}
		s1, s2, err := h.windowSums(c, weights, n, pw, ph, rw, rh)
		if err != nil {
			return nil, err
		}
		for i := range cross {
			cross[i] += x[i]
			if effective == ModeCorrCoeffNormed {
				winEnergy[i] += math.Max(0, s2[i]-s1[i]*s1[i]/float64(n))
			} else {
				winEnergy[i] += s2[i]
			}
		}
	}

	scores := make([]float32, rw*rh)
	for i := range scores {
		scores[i] = float32(similarity(effective, cross[i], patEnergy, winEnergy[i], flat))
	}

	return &ScoreMap{
		Width:         rw,
		Height:        rh,
		Scale:         scale,
		PatternWidth:  pw,
		PatternHeight: ph,
		Mode:          effective,
		Scores:        scores,
	}, nil
}

// plainScore 纯色模板的得分：均方色差 Σ(p-w)²/(n·通道数) 映射到 [0,1]
// 模板近似为各通道均值 m，Σ(m-w)² = n·m² - 2m·Σw + Σw²，再加上模板自身的离散度。
func (h *haystack) plainScore(means []float64, centered float64, weights []float64, n, pw, ph int, scale float64) (*ScoreMap, error) {
	rw, rh := h.width-pw+1, h.height-ph+1
	dist := make([]float64, rw*rh)
	for c, m := range means {
		s1, s2, err := h.windowSums(c, weights, n, pw, ph, rw, rh)
		if err != nil {
			return nil, err
		}
		for i := range dist {
			dist[i] += float64(n)*m*m - 2*m*s1[i] + s2[i]
		}
	}

	count := float64(n * len(means))
	scores := make([]float32, rw*rh)
	for i := range scores {
		scores[i] = float32(plainSimilarity((centered + dist[i]) / count))
	}
	return &ScoreMap{
		Width:         rw,
		Height:        rh,
		Scale:         scale,
		PatternWidth:  pw,
		PatternHeight: ph,
		Mode:          ModeSqDiffNormed,
		Scores:        scores,
	}, nil
}

// plainSimilarity 由均方色差得到相似度，色差为 0 时为 1
func plainSimilarity(msd float64) float64 {
	switch {
	case math.IsNaN(msd):
		return 0
	case msd <= 0:
		return 1
	}
	return clamp01(1 - math.Sqrt(msd)/PlainColorTolerance)
}

// windowSums 每个位置窗口内的 Σm·w 与 Σm·w²
func (h *haystack) windowSums(c int, weights []float64, n, pw, ph, rw, rh int) ([]float64, []float64, error) {
	s1 := make([]float64, rw*rh)
	s2 := make([]float64, rw*rh)

	// 无掩码时直接用积分图
	if n == pw*ph {
		stride := h.width + 1
		for y := 0; y < rh; y++ {
			for x := 0; x < rw; x++ {
				s1[y*rw+x] = rectSum(h.sum[c], stride, x, y, pw, ph)
				s2[y*rw+x] = rectSum(h.sqsum[c], stride, x, y, pw, ph)
			}
		}
		return s1, s2, nil
	}

	squares, err := h.squaredPlanes()
	if err != nil {
		return nil, nil, err
	}
	s1, err = correlate(h.mats[c], weights, pw, ph, rw, rh)
	if err != nil {
		return nil, nil, err
	}
	s2, err = correlate(squares[c], weights, pw, ph, rw, rh)
	if err != nil {
		return nil, nil, err
	}
	return s1, s2, nil
}

// similarity 由相关项与能量得到 [0,1] 的相似度
func similarity(mode MatchMode, cross, patEnergy, winEnergy, flat float64) float64 {
	if patEnergy <= flat || winEnergy <= flat {
		return 0
	}
	denom := math.Sqrt(patEnergy * winEnergy)

	var s float64
	switch mode {
	case ModeSqDiffNormed:
		d := (patEnergy - 2*cross + winEnergy) / denom
		s = 1 - clamp01(d)
	default:
		s = cross / denom
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return clamp01(s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// correlate 用 TM_CCORR 计算 img 与 templ 的互相关
func correlate(img gocv.Mat, templ []float64, tw, th, rw, rh int) ([]float64, error) {
	t := gocv.NewMatWithSize(th, tw, gocv.MatTypeCV32FC1)
	defer t.Close()
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			t.SetFloatAt(y, x, float32(templ[y*tw+x]))
		}
	}

	result := gocv.NewMat()
	defer result.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()
	gocv.MatchTemplate(img, t, &result, gocv.TmCcorr, noMask)
	if result.Empty() || result.Rows() != rh || result.Cols() != rw {
		return nil, fmt.Errorf("模板匹配结果尺寸异常: %dx%d", result.Cols(), result.Rows())
	}

	vals, err := result.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("读取匹配结果失败: %w", err)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out, nil
}

// maskWeights 返回 0/1 权重与参与计算的像素数
func maskWeights(mask *ImageBuffer, w, h int) ([]float64, int, error) {
	weights := make([]float64, w*h)
	if mask == nil {
		for i := range weights {
			weights[i] = 1
		}
		return weights, w * h, nil
	}
	if mask.Width() != w || mask.Height() != h {
		return nil, 0, fmt.Errorf("%w: 掩码 %dx%d, 模板 %dx%d", ErrMaskSizeMismatch, mask.Width(), mask.Height(), w, h)
	}

	gray, err := mask.ToGray()
	if err != nil {
		return nil, 0, err
	}
	defer gray.Close()
	m, err := newPlanes(gray.Mat())
	if err != nil {
		return nil, 0, err
	}
	defer m.Close()

	n := 0
	for i, v := range m.data[0] {
		if v > 0 {
			weights[i] = 1
			n++
		}
	}
	if n == 0 {
		return nil, 0, ErrEmptyMask
	}
	return weights, n, nil
}

// integral 计算积分图与平方积分图
func integral(data []float32, w, h int) ([]float64, []float64) {
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	sq := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rs, rq float64
		for x := 0; x < w; x++ {
			v := float64(data[y*w+x])
			rs += v
			rq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rs
			sq[(y+1)*stride+x+1] = sq[y*stride+x+1] + rq
		}
	}
	return sum, sq
}

func rectSum(I []float64, stride, x, y, w, h int) float64 {
	return I[(y+h)*stride+x+w] - I[y*stride+x+w] - I[(y+h)*stride+x] + I[y*stride+x]
}

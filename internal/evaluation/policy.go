package evaluation

import (
	"math"

	"ielts-tutor-go/internal/config"
)

const (
	MinScore = 1.0
	MaxScore = 5.0
)

// Policy 是音频质量对应的分数修正表。
type Policy struct {
	adjustments map[Quality]float64
}

// NewPolicy 从配置创建修正策略。
func NewPolicy(cfg config.AudioAdjustmentConfig) Policy {
	return Policy{adjustments: map[Quality]float64{
		QualityExcellent: cfg.Excellent,
		QualityGood:      cfg.Good,
		QualityFair:      cfg.Fair,
		QualityPoor:      cfg.Poor,
	}}
}

// DefaultPolicy 返回默认修正值：+0.2 / +0.1 / 0 / -0.2。
func DefaultPolicy() Policy {
	return NewPolicy(config.AudioAdjustmentConfig{Excellent: 0.2, Good: 0.1, Fair: 0, Poor: -0.2})
}

// Adjust 在有录音时按质量修正分数，结果总是落在 [1,5]。
// 只有实际发生修正时才保留两位小数，未修正的分数原样返回（仅做范围限制）。
func (p Policy) Adjust(base float64, a Analysis) float64 {
	if a.HasAudio {
		if delta := p.adjustments[a.Quality]; delta != 0 {
			base = math.Round((base+delta)*100) / 100
		}
	}
	return Clamp(base)
}

// Clamp 将分数限制在 [1,5]，NaN 视为最低分。
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, score))
}

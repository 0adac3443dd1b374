package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"ielts-tutor-go/internal/config"
)

func TestPolicy_Adjust(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 3.8, p.Adjust(4, Analysis{HasAudio: true, Quality: QualityPoor}))
	assert.Equal(t, 4.2, p.Adjust(4, Analysis{HasAudio: true, Quality: QualityExcellent}))
	assert.Equal(t, 4.1, p.Adjust(4, Analysis{HasAudio: true, Quality: QualityGood}))
	assert.Equal(t, 4.0, p.Adjust(4, Analysis{HasAudio: true, Quality: QualityFair}))
	// 没有录音时不修正
	assert.Equal(t, 4.0, p.Adjust(4, noAudio()))
}

func TestPolicy_AlwaysInRange(t *testing.T) {
	policies := []Policy{
		DefaultPolicy(),
		NewPolicy(config.AudioAdjustmentConfig{Excellent: 3, Good: 1.5, Fair: -1, Poor: -7}),
	}
	bases := []float64{-100, -1, 0, 0.5, 1, 1.1, 2.5, 4.9, 5, 5.3, 42, math.Inf(1), math.Inf(-1), math.NaN()}
	qualities := []Quality{QualityExcellent, QualityGood, QualityFair, QualityPoor}

	for _, p := range policies {
		for _, base := range bases {
			for _, q := range qualities {
				for _, has := range []bool{true, false} {
					score := p.Adjust(base, Analysis{HasAudio: has, Quality: q})
					assert.GreaterOrEqual(t, score, MinScore)
					assert.LessOrEqual(t, score, MaxScore)
				}
			}
		}
	}
}

func TestPolicy_Configurable(t *testing.T) {
	p := NewPolicy(config.AudioAdjustmentConfig{Poor: -0.5})
	assert.Equal(t, 3.5, p.Adjust(4, Analysis{HasAudio: true, Quality: QualityPoor}))
}

func TestClamp_KeepsPrecision(t *testing.T) {
	assert.Equal(t, 3.3333, Clamp(3.3333))
	assert.Equal(t, 1.0, Clamp(0.2))
	assert.Equal(t, 5.0, Clamp(5.2))
}

func TestPolicy_RoundsOnlyWhenAdjusted(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3.456, p.Adjust(3.456, noAudio()))
	assert.Equal(t, 3.456, p.Adjust(3.456, Analysis{HasAudio: true, Quality: QualityFair}))
	assert.Equal(t, 3.66, p.Adjust(3.456, Analysis{HasAudio: true, Quality: QualityExcellent}))
}

package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_NoAudio(t *testing.T) {
	a := Analyze("")
	assert.False(t, a.HasAudio)
	assert.Equal(t, QualityPoor, a.Quality)
	assert.Equal(t, 0, a.EstimatedDurationSeconds)
	assert.NotNil(t, a.Feedback)
	assert.Empty(t, a.Feedback)
}

func TestAnalyze_Excellent(t *testing.T) {
	a := Analyze(strings.Repeat("A", 120000))
	assert.True(t, a.HasAudio)
	assert.Equal(t, QualityExcellent, a.Quality)
	assert.Equal(t, 2, a.EstimatedDurationSeconds)
	assert.Equal(t, []string{normalDurationNote, qualityNotes[QualityExcellent]}, a.Feedback)
}

func TestAnalyzeSize_Tiers(t *testing.T) {
	cases := []struct {
		size     int
		quality  Quality
		duration int
		note     string
	}{
		{size: 1, quality: QualityPoor, duration: 1, note: shortDurationNote},
		{size: 20000, quality: QualityPoor, duration: 1, note: shortDurationNote},
		{size: 20001, quality: QualityFair, duration: 1, note: shortDurationNote},
		{size: 50000, quality: QualityFair, duration: 1, note: shortDurationNote},
		{size: 50001, quality: QualityGood, duration: 1, note: shortDurationNote},
		{size: 100000, quality: QualityGood, duration: 2, note: normalDurationNote},
		{size: 100001, quality: QualityExcellent, duration: 2, note: normalDurationNote},
		{size: 1500000, quality: QualityExcellent, duration: 30, note: normalDurationNote},
		{size: 1550000, quality: QualityExcellent, duration: 31, note: longDurationNote},
	}
	for _, tc := range cases {
		a := AnalyzeSize(tc.size)
		assert.Equal(t, tc.quality, a.Quality, "size %d", tc.size)
		assert.Equal(t, tc.duration, a.EstimatedDurationSeconds, "size %d", tc.size)
		assert.Len(t, a.Feedback, 2)
		assert.Equal(t, tc.note, a.Feedback[0], "size %d", tc.size)
	}

	assert.False(t, AnalyzeSize(0).HasAudio)
}

// Package evaluation 负责答案评估：音频启发式分析、评分提示词、结果解析与分数修正。
package evaluation

// Quality 是音频质量等级。
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// 质量阈值与时长估算按录音数据大小（字节或编码后字符数）计算。
const (
	excellentThreshold = 100000
	goodThreshold      = 50000
	fairThreshold      = 20000
	bytesPerSecond     = 50000
)

// Analysis 是对一段录音的粗略分析结果。
type Analysis struct {
	HasAudio                 bool     `json:"hasAudio"`
	Quality                  Quality  `json:"audioQuality"`
	EstimatedDurationSeconds int      `json:"estimatedDurationSeconds"`
	Feedback                 []string `json:"feedback"`
}

var qualityNotes = map[Quality]string{
	QualityExcellent: "Clear audio quality detected. Your pronunciation appears to be well-articulated.",
	QualityGood:      "Good audio quality. Your speech is generally clear with minor background noise.",
	QualityFair:      "Fair audio quality. Try to reduce background noise and speak clearly.",
	QualityPoor:      "Low audio quality detected. Please check your microphone settings.",
}

const (
	shortDurationNote  = "Try to speak more clearly and at a natural pace. Very short responses may not show your full speaking ability."
	longDurationNote   = "Good detailed response! Make sure to stay focused on the main points."
	normalDurationNote = "Good response length - appropriate for the question type."
)

// noAudio 是没有录音时的分析结果。
func noAudio() Analysis {
	return Analysis{HasAudio: false, Quality: QualityPoor, EstimatedDurationSeconds: 0, Feedback: []string{}}
}

// Analyze 根据编码后的录音数据长度进行分析。payload 为空时返回 HasAudio=false。
func Analyze(payload string) Analysis {
	if payload == "" {
		return noAudio()
	}
	return AnalyzeSize(len(payload))
}

// AnalyzeSize 根据录音大小进行分析，用于已上传到对象存储的录音。
func AnalyzeSize(size int) Analysis {
	if size <= 0 {
		return noAudio()
	}

	quality := QualityPoor
	switch {
	case size > excellentThreshold:
		quality = QualityExcellent
	case size > goodThreshold:
		quality = QualityGood
	case size > fairThreshold:
		quality = QualityFair
	}

	duration := size / bytesPerSecond
	if duration < 1 {
		duration = 1
	}

	return Analysis{
		HasAudio:                 true,
		Quality:                  quality,
		EstimatedDurationSeconds: duration,
		Feedback:                 []string{durationNote(duration), qualityNotes[quality]},
	}
}

func durationNote(seconds int) string {
	switch {
	case seconds < 2:
		return shortDurationNote
	case seconds > 30:
		return longDurationNote
	default:
		return normalDurationNote
	}
}

package evaluation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
	"ielts-tutor-go/pkg/storage"
)

const (
	// FallbackFeedback 是模型输出无法解析时返回的反馈。
	FallbackFeedback = "Unable to parse evaluation. Please check if your response addresses the question and try again."
	// ErrParsingFailed 标记降级结果。
	ErrParsingFailed = "parsing_failed"
)

var questionTypes = map[string]struct{}{
	model.QuestionMultipleChoice: {},
	model.QuestionEssay:          {},
	model.QuestionSpeaking:       {},
	model.QuestionCategorization: {},
	model.QuestionReading:        {},
	model.QuestionFillBlank:      {},
}

// Request 是一次评估请求。Audio/AudioURL 为内联的编码录音，AudioKey 指向已上传的录音。
type Request struct {
	QuestionID      string   `json:"questionId"`
	QuestionContent string   `json:"questionContent"`
	Answer          string   `json:"answer"`
	Audio           string   `json:"audio"`
	AudioURL        string   `json:"audioUrl"`
	AudioKey        string   `json:"audioKey"`
	Criteria        []string `json:"criteria"`
	QuestionType    string   `json:"questionType"`
}

// AudioSummary 是返回给口语题的音频信息。
type AudioSummary struct {
	Quality             Quality `json:"quality"`
	Duration            int     `json:"duration"`
	HasAudioEnhancement bool    `json:"hasAudioEnhancement"`
}

// Result 是评估结果，Score 总是在 [1,5]，Feedback 总是非空。
type Result struct {
	Score         float64       `json:"score"`
	Feedback      string        `json:"feedback"`
	AudioAnalysis *AudioSummary `json:"audioAnalysis,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// AudioStat 查询已上传录音的信息。
type AudioStat interface {
	Stat(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

// Evaluator 调用 LLM 对答案评分。重试由 llm.Client 负责，这一层不再重试。
type Evaluator struct {
	client      llm.Client
	policy      Policy
	maxFeedback int
	audio       AudioStat
}

// NewEvaluator 创建评估器。audio 可以为 nil，此时忽略 AudioKey。
func NewEvaluator(client llm.Client, cfg config.EvaluationConfig, audio AudioStat) *Evaluator {
	return &Evaluator{
		client:      client,
		policy:      NewPolicy(cfg.AudioAdjustment),
		maxFeedback: cfg.MaxFeedbackChars,
		audio:       audio,
	}
}

// Validate 校验请求：至少一条评分标准，题型合法。
func (r Request) Validate() error {
	var problems []string
	hasCriterion := false
	for _, c := range r.Criteria {
		if strings.TrimSpace(c) != "" {
			hasCriterion = true
			break
		}
	}
	if !hasCriterion {
		problems = append(problems, "criteria must contain at least one item")
	}
	if _, ok := questionTypes[r.QuestionType]; !ok {
		problems = append(problems, fmt.Sprintf("questionType %q is not supported", r.QuestionType))
	}
	if len(problems) > 0 {
		return errs.NewValidation("Invalid evaluation request", problems...)
	}
	return nil
}

// Evaluate 对一次作答进行评分。上游重试耗尽时返回错误；模型输出无法解析时返回降级结果而不是错误。
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	// 1. 参数校验
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 2. 音频分析
	analysis := e.analyzeAudio(ctx, req)

	// 3. 调用 LLM
	completion, err := e.client.Complete(ctx, BuildPrompt(req, analysis))
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(req.QuestionType, "upstream_error").Inc()
		log.Errorw("评估调用 LLM 失败", "questionId", req.QuestionID, "error", err)
		return nil, err
	}

	// 4. 解析
	var parsed Parsed
	switch out := ParseCompletion(completion.Text).(type) {
	case Parsed:
		parsed = out
	case Unparsable:
		metrics.EvaluationsTotal.WithLabelValues(req.QuestionType, "fallback").Inc()
		log.Warnw("无法解析评估结果，返回降级结果", "questionId", req.QuestionID, "raw", out.Raw, "error", out.Err)
		return &Result{Score: MinScore, Feedback: FallbackFeedback, Error: ErrParsingFailed}, nil
	}

	// 5. 分数修正与反馈
	result := &Result{Score: e.policy.Adjust(parsed.Score, analysis)}
	note := ""
	speaking := req.QuestionType == model.QuestionSpeaking
	if analysis.HasAudio && speaking && (analysis.Quality == QualityExcellent || analysis.Quality == QualityPoor) {
		note = fmt.Sprintf("\n**Audio:** %s quality detected.", analysis.Quality)
	}
	result.Feedback = truncate(parsed.Feedback, e.maxFeedback-utf8.RuneCountInString(note)) + note

	if analysis.HasAudio && speaking {
		result.AudioAnalysis = &AudioSummary{
			Quality:             analysis.Quality,
			Duration:            analysis.EstimatedDurationSeconds,
			HasAudioEnhancement: true,
		}
	}

	metrics.EvaluationsTotal.WithLabelValues(req.QuestionType, "parsed").Inc()
	return result, nil
}

func (e *Evaluator) analyzeAudio(ctx context.Context, req Request) Analysis {
	if req.Audio != "" {
		return Analyze(req.Audio)
	}
	if req.AudioURL != "" {
		return Analyze(req.AudioURL)
	}
	if req.AudioKey == "" || e.audio == nil {
		return noAudio()
	}

	info, err := e.audio.Stat(ctx, req.AudioKey)
	if err != nil {
		log.Warnw("获取录音信息失败，按无录音评估", "audioKey", req.AudioKey, "error", err)
		return noAudio()
	}
	return AnalyzeSize(int(info.Size))
}

// truncate 按字符截断，超出时以 ... 结尾。max 不大于 0 表示不限制。
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

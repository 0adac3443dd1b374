package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ielts-tutor-go/internal/session"
)

// 模板占位符：{lessonTitle} {lessonTheory} {lessonQuestions} {history} {question}
const defaultLessonTemplate = `Bạn là trợ lý AI cho một nền tảng học IELTS. Vai trò của bạn là giúp học sinh với nội dung bài học và chuẩn bị IELTS.

NGỮ CẢNH BÀI HỌC:
Tiêu đề: {lessonTitle}
Lý thuyết: {lessonTheory}
Câu hỏi:
{lessonQuestions}

QUY TẮC TRUYỆN THOẠI:
1. Trả lời ngắn gọn, đi thẳng vào vấn đề và bám sát nội dung bài học hiện tại.
2. Khi người dùng nhắc tới "câu 2", "question 2" hoặc số thứ tự tương tự, hãy hiểu đó là câu hỏi có số thứ tự tương ứng trong danh sách trên.
3. Chỉ trả lời các câu hỏi liên quan đến bài học, chiến lược IELTS và học tiếng Anh. Nếu không liên quan, hãy trả lời:
   "Xin lỗi, tôi chỉ có thể hỗ trợ các câu hỏi liên quan đến IELTS và nội dung bài học. Bạn có thể hỏi tôi về bài học hiện tại hoặc các kỹ năng IELTS khác."
4. Luôn trả lời bằng tiếng Việt một cách tự nhiên và dễ hiểu.

LỊCH SỬ HỘI THOẠI:
{history}

CÂU HỎI CỦA NGƯỜI DÙNG: {question}

TRẢ LỜI:`

const defaultGeneralTemplate = `Bạn là trợ lý AI cho một nền tảng học IELTS. Vai trò của bạn là giúp học sinh chuẩn bị IELTS.

QUY TẮC TRUYỆN THOẠI:
1. Chỉ trả lời các câu hỏi liên quan đến:
   - Chiến lược chuẩn bị IELTS
   - Học tiếng Anh
   - Ngữ pháp, từ vựng, nói, viết, đọc, nghe
   - Mẹo và kỹ thuật học tập

2. Nếu người dùng hỏi về các chủ đề không liên quan đến IELTS hoặc học tiếng Anh, hãy trả lời:
   "` + GeneralRefusal + `"

3. Hãy hữu ích, khuyến khích và cung cấp lời khuyên thực tế cho việc chuẩn bị IELTS.

4. Luôn trả lời bằng tiếng Việt một cách tự nhiên và dễ hiểu.

LỊCH SỬ HỘI THOẠI:
{history}

CÂU HỎI CỦA NGƯỜI DÙNG: {question}

TRẢ LỜI:`

// GeneralRefusal 是通用模板中对无关话题的固定回复。
const GeneralRefusal = "Xin lỗi, tôi chỉ có thể hỗ trợ các câu hỏi liên quan đến IELTS và học tiếng Anh. Bạn có câu hỏi nào về IELTS không?"

const (
	noQuestionsText = "Chưa có câu hỏi cho bài học này."
	noTheoryText    = "Chưa có nội dung lý thuyết."
	untitledLesson  = "Bài học không có tiêu đề"
	noHistoryText   = "Chưa có lịch sử hội thoại."
)

// formatQuestions 渲染题目列表，每行 "{n}. {question} (Đáp án: {answer})"，没有答案时省略括号部分。
func formatQuestions(questions []session.QuestionSummary) string {
	if len(questions) == 0 {
		return noQuestionsText
	}
	lines := make([]string, 0, len(questions))
	for i, q := range questions {
		line := fmt.Sprintf("%d. %s", i+1, q.Question)
		if q.CorrectAnswer != "" {
			line += fmt.Sprintf(" (Đáp án: %s)", q.CorrectAnswer)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// truncateRunes 按字符截断，超出时追加 "..."。
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func renderLessonPrompt(tmpl string, lc *session.LessonContext, theoryMax int, history, question string) string {
	title := lc.Title
	if title == "" {
		title = untitledLesson
	}
	theory := truncateRunes(lc.Theory, theoryMax)
	if theory == "" {
		theory = noTheoryText
	}
	return strings.NewReplacer(
		"{lessonTitle}", title,
		"{lessonTheory}", theory,
		"{lessonQuestions}", formatQuestions(lc.Questions),
		"{history}", orDefault(history, noHistoryText),
		"{question}", question,
	).Replace(tmpl)
}

func renderGeneralPrompt(tmpl, history, question string) string {
	return strings.NewReplacer(
		"{history}", orDefault(history, noHistoryText),
		"{question}", question,
	).Replace(tmpl)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

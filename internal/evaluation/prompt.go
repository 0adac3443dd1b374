package evaluation

import (
	"fmt"
	"strings"

	"ielts-tutor-go/internal/model"
)

// BuildPrompt 组装评分提示词。
func BuildPrompt(req Request, a Analysis) string {
	var b strings.Builder

	b.WriteString("You are a JSON API. You must respond with valid JSON only, no other text.\n")
	b.WriteString("You are an experienced IELTS instructor providing detailed evaluation feedback.\n")

	if a.HasAudio {
		fmt.Fprintf(&b, "\nAUDIO ANALYSIS AVAILABLE:\n- Audio Quality: %s\n- Duration: ~%d seconds\n- Audio-based insights: %s\n",
			a.Quality, a.EstimatedDurationSeconds, strings.Join(a.Feedback, ". "))
		if req.QuestionType == model.QuestionSpeaking {
			b.WriteString("\nBased on the audio analysis, provide additional insights about:\n")
			b.WriteString("- Pronunciation clarity and naturalness\n- Speaking pace and rhythm\n")
			b.WriteString("- Confidence and fluency indicators\n- Voice projection and clarity\n")
		}
	}

	fmt.Fprintf(&b, "\nEvaluate the following %s response based on the given criteria.\n\n", req.QuestionType)

	question := strings.TrimSpace(req.QuestionContent)
	if question == "" {
		question = "No question content provided"
	}
	fmt.Fprintf(&b, "QUESTION: %s\n", question)

	if answer := strings.TrimSpace(req.Answer); answer != "" {
		fmt.Fprintf(&b, "\nSTUDENT RESPONSE: %s\n", answer)
	}
	if a.HasAudio {
		b.WriteString("\n[Audio response analysis included in evaluation]\n")
	}

	b.WriteString("\nEVALUATION CRITERIA:\n")
	for _, c := range req.Criteria {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString(`
STRICT EVALUATION RULES:
1. RELEVANCE CHECK FIRST: If the response does NOT address the question or is completely irrelevant → Score = 1/5
2. If response is somewhat relevant but poor quality → Score = 2/5
3. If response addresses the question adequately → Score = 3/5
4. If response addresses the question well with good criteria performance → Score = 4/5
5. If response excellently addresses the question and meets all criteria → Score = 5/5

Please evaluate the student's response and provide:
1. A score from 1-5 (where 1 = irrelevant/no answer, 5 = excellent)
2. Detailed feedback explaining the score and suggesting improvements

IMPORTANT: Keep your feedback concise and under 50 words. Focus on:
- FIRST: Does the response answer the specific question? (If NO → Score 1)
- Performance against each evaluation criterion
- Specific, actionable improvement suggestions
`)

	if req.QuestionType == model.QuestionSpeaking && a.HasAudio {
		b.WriteString(`
For speaking assessment, also consider:
- Pronunciation and clarity (based on audio analysis)
- Fluency and natural speech rhythm
- Confidence and voice projection
- Overall speaking effectiveness
`)
	}

	b.WriteString(`
You must respond with a JSON object in this exact format:
{
  "score": number,
  "feedback": string
}

Do not include any text before or after the JSON object.`)

	return b.String()
}

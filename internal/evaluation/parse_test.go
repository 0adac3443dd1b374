package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompletion(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		score    float64
		feedback string
	}{
		{name: "direct", text: `{"score": 4, "feedback": "Good answer."}`, score: 4, feedback: "Good answer."},
		{name: "fenced", text: "Here you go:\n```json\n{\"score\": 3.5, \"feedback\": \"Adequate.\"}\n```", score: 3.5, feedback: "Adequate."},
		{name: "embedded", text: `Result: {"score": 2, "feedback": "Off {topic}."} thanks`, score: 2, feedback: "Off {topic}."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := ParseCompletion(tc.text).(Parsed)
			require.True(t, ok)
			assert.Equal(t, tc.score, out.Score)
			assert.Equal(t, tc.feedback, out.Feedback)
		})
	}
}

func TestParseCompletion_Unparsable(t *testing.T) {
	for _, text := range []string{
		"I think the student did well.",
		`{"score": "four", "feedback": "Good"}`,
		`{"score": 4}`,
		`{"score": 4, "feedback": "   "}`,
	} {
		out, ok := ParseCompletion(text).(Unparsable)
		require.True(t, ok, text)
		assert.Equal(t, text, out.Raw)
	}
}

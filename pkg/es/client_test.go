package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/internal/model"
)

// newTestIndex 启动一个模拟 Elasticsearch 的 HTTP 服务，handler 处理所有请求。
func newTestIndex(t *testing.T, handler http.HandlerFunc) *LessonIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewLessonIndex(client, "lessons_test")
}

func TestIndexLesson(t *testing.T) {
	var gotPath string
	var gotDoc model.LessonDocument
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	err := idx.IndexLesson(context.Background(), model.LessonDocument{LessonID: "L1", UserID: "u1", Title: "Present Perfect"})
	require.NoError(t, err)
	assert.Equal(t, "/lessons_test/_doc/L1", gotPath)
	assert.Equal(t, "Present Perfect", gotDoc.Title)
}

func TestIndexLesson_Error(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"mapper_parsing_exception"}`)
	})
	assert.Error(t, idx.IndexLesson(context.Background(), model.LessonDocument{LessonID: "L1"}))
}

func TestSearchLessons(t *testing.T) {
	var query map[string]interface{}
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lessons_test/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_score":2.5,"_source":{"lesson_id":"L1","learning_path_id":"P1","title":"Tenses","theory":"ignored","lesson_number":1},
			 "highlight":{"theory":["<em>present</em> perfect"]}},
			{"_score":1.0,"_source":{"lesson_id":"L2","learning_path_id":"P1","title":"Linking","theory":"short theory","lesson_number":2}}
		]}}`)
	})

	results, err := idx.SearchLessons(context.Background(), "present", "u1", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "<em>present</em> perfect", results[0].Snippet)
	assert.InDelta(t, 2.5, results[0].Score, 1e-9)
	assert.Equal(t, "short theory", results[1].Snippet)
	assert.Equal(t, 2, results[1].LessonNumber)

	assert.EqualValues(t, 5, query["size"])
	raw, _ := json.Marshal(query["query"])
	assert.Contains(t, string(raw), `"user_id":"u1"`)
}

func TestSearchLessons_NoUserFilter(t *testing.T) {
	var body string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = io.WriteString(w, `{"hits":{"hits":[]}}`)
	})

	results, err := idx.SearchLessons(context.Background(), "grammar", "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, strings.Contains(body, "user_id"))
}

func TestSearchLessons_ErrorStatus(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})
	_, err := idx.SearchLessons(context.Background(), "x", "", 10)
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", Snippet("abc", 5))
	assert.Equal(t, "ab...", Snippet("abcdef", 2))
	assert.Equal(t, "Tiếng...", Snippet("Tiếng Anh", 5))
}

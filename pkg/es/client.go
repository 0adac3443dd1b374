// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端，并确保课程索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(client, esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 课程内容混合越南语与英语，使用标准分词器
	mapping := `{
		"mappings": {
			"properties": {
				"lesson_id": { "type": "keyword" },
				"learning_path_id": { "type": "keyword" },
				"user_id": { "type": "keyword" },
				"title": { "type": "text" },
				"theory": { "type": "text" },
				"questions": { "type": "text" },
				"lesson_number": { "type": "integer" }
			}
		}
	}`

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// LessonIndex 封装课程索引的写入与检索。
type LessonIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewLessonIndex 创建课程索引访问器。
func NewLessonIndex(client *elasticsearch.Client, index string) *LessonIndex {
	return &LessonIndex{client: client, index: index}
}

// IndexLesson 将课程文档写入索引，文档 ID 为课程 ID。
func (l *LessonIndex) IndexLesson(ctx context.Context, doc model.LessonDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      l.index,
		DocumentID: doc.LessonID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, l.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引课程到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index lesson")
	}
	return nil
}

// SearchLessons 在标题、理论和题目中检索，userID 非空时只返回该用户的课程。
func (l *LessonIndex) SearchLessons(ctx context.Context, query, userID string, size int) ([]model.LessonSearchResult, error) {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "theory", "questions"},
			},
		},
	}
	boolQuery := map[string]interface{}{"must": must}
	if userID != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"user_id": userID}},
		}
	}
	esQuery := map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"theory": map[string]interface{}{"fragment_size": 160, "number_of_fragments": 1},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := l.client.Search(
		l.client.Search.WithContext(ctx),
		l.client.Search.WithIndex(l.index),
		l.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search lessons: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned %s: %s", res.Status(), string(bodyBytes))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source    model.LessonDocument `json:"_source"`
				Score     float64              `json:"_score"`
				Highlight map[string][]string  `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.LessonSearchResult, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		snippet := ""
		if h := hit.Highlight["theory"]; len(h) > 0 {
			snippet = h[0]
		} else {
			snippet = Snippet(hit.Source.Theory, 160)
		}
		results = append(results, model.LessonSearchResult{
			LessonID:       hit.Source.LessonID,
			LearningPathID: hit.Source.LearningPathID,
			Title:          hit.Source.Title,
			Snippet:        snippet,
			LessonNumber:   hit.Source.LessonNumber,
			Score:          hit.Score,
		})
	}
	return results, nil
}

// Snippet 截取前 n 个字符作为摘要。
func Snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// JSONCandidates 按优先级返回文本中可能的 JSON 片段：
// 整段文本、```json 代码块、第一个括号平衡的 {...} 对象。
func JSONCandidates(text string) []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		candidates = append(candidates, s)
	}

	add(text)
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	if obj, ok := firstBalancedObject(text); ok {
		add(obj)
	}
	return candidates
}

// firstBalancedObject 从第一个 '{' 开始扫描，跳过字符串内部的括号，返回第一个闭合的对象。
func firstBalancedObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// DecodeStructured 依次尝试每个候选片段：通过 schema 校验（schema 为 nil 时跳过）且能解码到 out 即成功。
// 全部失败返回 *ErrInvalidResponse。
func DecodeStructured(text string, schema *Schema, out any) error {
	var lastErr error = errors.New("no JSON object found")
	for _, candidate := range JSONCandidates(text) {
		if schema != nil {
			if err := schema.Validate([]byte(candidate)); err != nil {
				lastErr = err
				continue
			}
		}
		if err := json.Unmarshal([]byte(candidate), out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	var invalid *ErrInvalidResponse
	if errors.As(lastErr, &invalid) {
		return lastErr
	}
	return &ErrInvalidResponse{Content: text, Err: lastErr}
}

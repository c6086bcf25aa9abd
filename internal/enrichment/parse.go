package enrichment

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/GodsB1025/trade-monitor/internal/models"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// errParse wraps JSON extraction failures so classifyError can tag them.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return "failed to parse enrichment response: " + e.msg
}

func isParseError(err error) bool {
	var pe *parseError
	return errors.As(err, &pe)
}

// updateInfo is the JSON shape the provider is prompted to return.
type updateInfo struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceURL  string `json:"source_url"`
	Importance string `json:"importance"`
}

// parseResponse turns raw provider output into an EnrichmentResult. The
// provider either answers with the sentinel text or a single JSON object,
// sometimes wrapped in a markdown fence or surrounded by prose.
func parseResponse(raw, sentinel string) (*models.EnrichmentResult, error) {
	trimmed := strings.TrimSpace(raw)

	if sentinel != "" && strings.Contains(trimmed, sentinel) {
		return &models.EnrichmentResult{
			SummaryText: sentinel,
			Succeeded:   true,
		}, nil
	}

	payload := extractJSON(trimmed)
	if payload == "" {
		return nil, &parseError{msg: "no JSON object in response"}
	}

	var info updateInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, &parseError{msg: err.Error()}
	}

	result := &models.EnrichmentResult{
		Title:       strings.TrimSpace(info.Title),
		SummaryText: strings.TrimSpace(info.Content),
		Importance:  normalizeImportance(info.Importance),
		Succeeded:   true,
	}
	if url := strings.TrimSpace(info.SourceURL); url != "" {
		result.SourceURLs = []string{url}
	}
	return result, nil
}

// extractJSON pulls the first JSON object out of the response text, trying a
// markdown fence first and falling back to brace matching.
func extractJSON(text string) string {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// normalizeImportance maps provider output onto the known levels, defaulting
// to MEDIUM for anything unrecognized.
func normalizeImportance(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case models.ImportanceHigh:
		return models.ImportanceHigh
	case models.ImportanceLow:
		return models.ImportanceLow
	default:
		return models.ImportanceMedium
	}
}

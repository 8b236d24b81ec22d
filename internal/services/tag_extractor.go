package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/logger"
)

// listPattern locates the first bracketed list-like substring in a
// completion that may be wrapped in prose.
var listPattern = regexp.MustCompile(`(?s)\[.*?\]`)

// TagExtractor derives short category tags from the analysis text. It never
// fails outward: every failure degrades to an empty tag list.
type TagExtractor struct {
	llm llm.Client
}

func NewTagExtractor(client llm.Client) *TagExtractor {
	return &TagExtractor{llm: client}
}

func (te *TagExtractor) Extract(ctx context.Context, analysis string) []string {
	if strings.TrimSpace(analysis) == "" {
		return []string{}
	}

	prompt := fmt.Sprintf(TAG_EXTRACTION_PROMPT, analysis)
	output, err := te.llm.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		logger.WithLLM("", "tag_extraction").WithError(err).Error("Tag completion failed")
		return []string{}
	}

	return parseTagList(output)
}

// parseTagList extracts the first bracketed substring and parses it strictly
// as a JSON array of strings. Anything else yields an empty list.
func parseTagList(output string) []string {
	listStr := listPattern.FindString(output)
	if listStr == "" {
		logger.Warn("No list-like structure found in tag output", map[string]interface{}{
			"output_length": len(output),
		})
		return []string{}
	}

	var parsed []any
	if err := json.Unmarshal([]byte(listStr), &parsed); err != nil {
		logger.Warn("Extracted tag list is not valid JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return []string{}
	}

	tags := make([]string, 0, len(parsed))
	for _, item := range parsed {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		tags = append(tags, s)
	}
	return tags
}

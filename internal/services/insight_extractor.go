package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/models"
)

// InsightExtractor derives validated structured insights from the analysis
// text. Whatever happens, the session's categorized_insights is overwritten
// with a valid (possibly empty) list so readers never see a stale value.
type InsightExtractor struct {
	llm      llm.Client
	sessions SessionStore
}

func NewInsightExtractor(client llm.Client, sessions SessionStore) *InsightExtractor {
	return &InsightExtractor{llm: client, sessions: sessions}
}

func (ie *InsightExtractor) Extract(ctx context.Context, analysis, sessionID string) models.InsightList {
	if strings.TrimSpace(analysis) == "" {
		return ie.persist(sessionID, models.InsightList{})
	}

	prompt := fmt.Sprintf(INSIGHT_EXTRACTION_PROMPT, analysis)
	output, err := ie.llm.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		logger.WithLLM(sessionID, "insight_extraction").WithError(err).Error("Insight completion failed")
		return ie.persist(sessionID, models.InsightList{})
	}

	candidate, ok := extractJSONCandidate(output)
	if !ok {
		logger.WithLLM(sessionID, "insight_extraction").Warn("No JSON candidate found in insight output")
		return ie.persist(sessionID, models.InsightList{})
	}

	insights, err := parseInsights(candidate)
	if err != nil {
		logger.WithLLM(sessionID, "insight_extraction").WithError(err).Warn("Insight JSON rejected")
		return ie.persist(sessionID, models.InsightList{})
	}
	return ie.persist(sessionID, insights)
}

// persist overwrites the stored insight list when a session exists. A
// persistence failure is logged; the in-memory list is still returned.
func (ie *InsightExtractor) persist(sessionID string, insights models.InsightList) models.InsightList {
	if sessionID != "" {
		if err := ie.sessions.UpdateInsights(sessionID, insights); err != nil {
			logger.WithSession(sessionID, "insight_extractor").WithError(err).Error("Could not persist insights")
		}
	}
	return insights
}

// parseInsights parses the candidate as an object with an "insights" array
// and validates each item. Items missing a required field are dropped; an
// out-of-enum trend is coerced to stable; a non-list data is coerced to
// empty. No truncation to the advisory 5-insight cap happens here.
func parseInsights(candidate string) (models.InsightList, error) {
	var payload struct {
		Insights []map[string]json.RawMessage `json:"insights"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, err
	}
	if payload.Insights == nil {
		return nil, &SchemaError{Msg: `missing "insights" array`}
	}

	validated := make(models.InsightList, 0, len(payload.Insights))
	for i, raw := range payload.Insights {
		insight, err := validateInsight(raw)
		if err != nil {
			logger.Warn("Dropping invalid insight", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		validated = append(validated, *insight)
	}
	return validated, nil
}

func validateInsight(raw map[string]json.RawMessage) (*models.Insight, error) {
	for _, field := range []string{"label", "value", "trend", "context", "data"} {
		if _, present := raw[field]; !present {
			return nil, &SchemaError{Msg: fmt.Sprintf("missing required field %q", field)}
		}
	}

	var insight models.Insight
	if err := json.Unmarshal(raw["label"], &insight.Label); err != nil {
		return nil, &SchemaError{Msg: "label is not a string"}
	}
	if err := json.Unmarshal(raw["value"], &insight.Value); err != nil {
		return nil, &SchemaError{Msg: "value is not a string"}
	}
	if err := json.Unmarshal(raw["context"], &insight.Context); err != nil {
		return nil, &SchemaError{Msg: "context is not a string"}
	}

	var trend string
	if err := json.Unmarshal(raw["trend"], &trend); err != nil || !models.ValidTrend(trend) {
		insight.Trend = models.TrendStable
	} else {
		insight.Trend = models.TrendDirection(trend)
	}

	var points []models.InsightPoint
	if err := json.Unmarshal(raw["data"], &points); err != nil || points == nil {
		points = []models.InsightPoint{}
	}
	insight.Data = points

	return &insight, nil
}

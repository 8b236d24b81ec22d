package models

import (
	"time"
)

// SessionTTL is how long a session stays valid after creation. The timestamp
// is advisory: nothing actively evicts expired sessions.
const SessionTTL = 24 * time.Hour

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// ValidTrend reports whether s is one of the accepted trend directions.
func ValidTrend(s string) bool {
	switch TrendDirection(s) {
	case TrendUp, TrendDown, TrendStable:
		return true
	}
	return false
}

// InsightPoint is a single chart point inside an insight's data series.
type InsightPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Insight is one validated structured finding extracted from the analysis.
type Insight struct {
	Label   string         `json:"label"`
	Value   string         `json:"value"`
	Trend   TrendDirection `json:"trend"`
	Context string         `json:"context"`
	Data    []InsightPoint `json:"data"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a session's follow-up conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalysisSession ties a stored table blob, its generated analysis and
// insights, and the follow-up chat history to one identifier.
type AnalysisSession struct {
	SessionID           string      `json:"session_id" gorm:"primaryKey;column:session_id"`
	SourceDescription   string      `json:"source_description" gorm:"type:text"`
	TableStoragePath    string      `json:"dataframe_storage_path" gorm:"column:dataframe_storage_path"`
	InitialAnalysis     *string     `json:"initial_analysis" gorm:"type:text"`
	CategorizedInsights InsightList `json:"categorized_insights" gorm:"type:jsonb"`
	ChatHistory         ChatHistory `json:"chat_history" gorm:"type:jsonb"`
	ExpiresAt           time.Time   `json:"expires_at"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (AnalysisSession) TableName() string {
	return "analysis_sessions"
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/models"
	"github.com/insightlab/backend/internal/services"
)

type AnalysisController struct {
	pipeline *services.AnalysisPipeline
	followup *services.FollowupEngine
	sessions services.SessionStore
}

func NewAnalysisController(pipeline *services.AnalysisPipeline, followup *services.FollowupEngine, sessions services.SessionStore) *AnalysisController {
	return &AnalysisController{
		pipeline: pipeline,
		followup: followup,
		sessions: sessions,
	}
}

type invokeRequest struct {
	Data []map[string]any `json:"data"`
}

type invokeResponse struct {
	SessionID string             `json:"session_id"`
	Analysis  string             `json:"analysis"`
	Tags      []string           `json:"tags"`
	Insights  models.InsightList `json:"insights"`
	Response  string             `json:"response"`
	Error     string             `json:"error,omitempty"`
}

type chatRequest struct {
	SessionID string               `json:"session_id" binding:"required"`
	Question  string               `json:"question"`
	History   []models.ChatMessage `json:"history"`
}

// Invoke runs the full analysis pipeline over the posted records. The
// response always carries every field; a failed stage leaves its field empty
// and sets the error string.
func (ac *AnalysisController) Invoke(c *gin.Context) {
	var req invokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result := ac.pipeline.Run(c.Request.Context(), req.Data)

	resp := invokeResponse{
		SessionID: result.SessionID,
		Analysis:  result.Analysis,
		Tags:      result.Tags,
		Insights:  result.Insights,
		Response:  result.Response,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Insights == nil {
		resp.Insights = models.InsightList{}
	}

	if result.Err != nil {
		resp.Error = result.Err.Error()
		c.JSON(statusFor(result.Err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Chat answers a follow-up question for an existing session. The history
// field is accepted for client convenience but ignored; the stored history
// is authoritative.
func (ac *AnalysisController) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	answer, err := ac.followup.Answer(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		logger.WithSession(req.SessionID, "chat").WithError(err).Warn("Follow-up question failed")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// GetSession returns one session record in the external shape.
func (ac *AnalysisController) GetSession(c *gin.Context) {
	session, err := ac.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// GetSessions returns all sessions, newest first.
func (ac *AnalysisController) GetSessions(c *gin.Context) {
	sessions, err := ac.sessions.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	views := make([]gin.H, 0, len(sessions))
	for i := range sessions {
		views = append(views, sessionView(&sessions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// sessionView normalizes nullable stored fields so clients always see arrays
// and a string, never null.
func sessionView(s *models.AnalysisSession) gin.H {
	analysis := ""
	if s.InitialAnalysis != nil {
		analysis = *s.InitialAnalysis
	}
	insights := s.CategorizedInsights
	if insights == nil {
		insights = models.InsightList{}
	}
	history := s.ChatHistory
	if history == nil {
		history = models.ChatHistory{}
	}
	return gin.H{
		"session_id":             s.SessionID,
		"source_description":     s.SourceDescription,
		"dataframe_storage_path": s.TableStoragePath,
		"initial_analysis":       analysis,
		"categorized_insights":   insights,
		"chat_history":           history,
		"created_at":             s.CreatedAt,
		"expires_at":             s.ExpiresAt,
	}
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var notFound *services.NotFoundError
	var input *services.InputError
	var upstream *services.UpstreamError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &input):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

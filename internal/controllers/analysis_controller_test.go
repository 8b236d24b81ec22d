package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/models"
	"github.com/insightlab/backend/internal/services"
	"github.com/insightlab/backend/internal/storage"
	"github.com/insightlab/backend/internal/table"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	index := s.calls
	s.calls++
	if index < len(s.responses) {
		return s.responses[index], nil
	}
	return "Final Answer: done.", nil
}

type memorySessionStore struct {
	sessions map[string]*models.AnalysisSession
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*models.AnalysisSession)}
}

func (m *memorySessionStore) Create(session *models.AnalysisSession) error {
	m.sessions[session.SessionID] = session
	return nil
}

func (m *memorySessionStore) Get(sessionID string) (*models.AnalysisSession, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, &services.NotFoundError{SessionID: sessionID}
	}
	return session, nil
}

func (m *memorySessionStore) List() ([]models.AnalysisSession, error) {
	out := make([]models.AnalysisSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySessionStore) UpdateAnalysis(sessionID, analysis string) error {
	session, ok := m.sessions[sessionID]
	if !ok {
		return &services.NotFoundError{SessionID: sessionID}
	}
	session.InitialAnalysis = &analysis
	return nil
}

func (m *memorySessionStore) UpdateInsights(sessionID string, insights models.InsightList) error {
	session, ok := m.sessions[sessionID]
	if !ok {
		return &services.NotFoundError{SessionID: sessionID}
	}
	session.CategorizedInsights = insights
	return nil
}

func (m *memorySessionStore) AppendChat(sessionID string, turns ...models.ChatMessage) error {
	session, ok := m.sessions[sessionID]
	if !ok {
		return &services.NotFoundError{SessionID: sessionID}
	}
	session.ChatHistory = append(session.ChatHistory, turns...)
	return nil
}

func setupTestRouter(client llm.Client) (*gin.Engine, *memorySessionStore) {
	gin.SetMode(gin.TestMode)

	store := newMemorySessionStore()
	objects := storage.NewMemoryStore()

	loader := services.NewDataLoader(store, objects, table.NewXLSXParser(), "", "")
	analyzer := services.NewChunkedAnalyzer(client, store)
	tags := services.NewTagExtractor(client)
	insights := services.NewInsightExtractor(client, store)
	pipeline := services.NewAnalysisPipeline(loader, analyzer, tags, insights)
	followup := services.NewFollowupEngine(client, store, objects, "")

	controller := NewAnalysisController(pipeline, followup, store)

	r := gin.New()
	api := r.Group("/api/v1/analysis")
	api.POST("/invoke", controller.Invoke)
	api.POST("/chat", controller.Chat)
	api.GET("/sessions", controller.GetSessions)
	api.GET("/sessions/:id", controller.GetSession)
	return r, store
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInvokeEndToEnd(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"Sales look strong.",
		`["sales_strength"]`,
		`{"insights": []}`,
	}}
	r, store := setupTestRouter(client)

	w := doRequest(r, http.MethodPost, "/api/v1/analysis/invoke",
		`{"data": [{"region": "west", "revenue": 100}, {"region": "east", "revenue": 250}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string   `json:"session_id"`
		Analysis  string   `json:"analysis"`
		Tags      []string `json:"tags"`
		Response  string   `json:"response"`
		Error     string   `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}

	if resp.SessionID == "" {
		t.Error("Expected a session id")
	}
	if !strings.Contains(resp.Analysis, "Sales look strong.") {
		t.Errorf("Unexpected analysis: %q", resp.Analysis)
	}
	if resp.Response != resp.Analysis {
		t.Error("Expected response to mirror analysis")
	}
	if len(resp.Tags) != 1 || resp.Tags[0] != "sales_strength" {
		t.Errorf("Unexpected tags: %v", resp.Tags)
	}
	if resp.Error != "" {
		t.Errorf("Unexpected error field: %q", resp.Error)
	}

	if _, ok := store.sessions[resp.SessionID]; !ok {
		t.Error("Session not persisted")
	}
}

func TestInvokeEmptyData(t *testing.T) {
	r, _ := setupTestRouter(&scriptedLLM{})

	w := doRequest(r, http.MethodPost, "/api/v1/analysis/invoke", `{"data": []}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty data, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if s, _ := resp["error"].(string); s == "" {
		t.Error("Expected error field to be set")
	}
	// Degraded fields still present and well formed
	if resp["analysis"] != "No data provided for analysis." {
		t.Errorf("Unexpected analysis: %v", resp["analysis"])
	}
}

func TestInvokeMalformedBody(t *testing.T) {
	r, _ := setupTestRouter(&scriptedLLM{})

	w := doRequest(r, http.MethodPost, "/api/v1/analysis/invoke", `{"data": "nope"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}

func TestChatUnknownSession(t *testing.T) {
	r, _ := setupTestRouter(&scriptedLLM{})

	w := doRequest(r, http.MethodPost, "/api/v1/analysis/chat",
		`{"session_id": "ghost", "question": "what happened?"}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", w.Code)
	}
}

func TestChatRoundTrip(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"Summary of the data.",
		`["tag_one"]`,
		`{"insights": []}`,
		"Final Answer: West brought in 100.",
	}}
	r, store := setupTestRouter(client)

	w := doRequest(r, http.MethodPost, "/api/v1/analysis/invoke",
		`{"data": [{"region": "west", "revenue": 100}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Invoke failed: %d", w.Code)
	}
	var invoke struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &invoke); err != nil {
		t.Fatalf("Invalid invoke response: %v", err)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/analysis/chat",
		`{"session_id": "`+invoke.SessionID+`", "question": "how much did west bring in?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Chat failed: %d: %s", w.Code, w.Body.String())
	}

	var chat struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &chat); err != nil {
		t.Fatalf("Invalid chat response: %v", err)
	}
	if chat.Response != "West brought in 100." {
		t.Errorf("Unexpected chat response: %q", chat.Response)
	}

	if len(store.sessions[invoke.SessionID].ChatHistory) != 2 {
		t.Error("Expected chat turn persisted to history")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupTestRouter(&scriptedLLM{})

	w := doRequest(r, http.MethodGet, "/api/v1/analysis/sessions/ghost", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetSessionNormalizesNulls(t *testing.T) {
	r, store := setupTestRouter(&scriptedLLM{})
	store.sessions["s1"] = &models.AnalysisSession{SessionID: "s1"}

	w := doRequest(r, http.MethodGet, "/api/v1/analysis/sessions/s1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp["initial_analysis"] != "" {
		t.Errorf("Expected empty string analysis, got %v", resp["initial_analysis"])
	}
	if _, ok := resp["categorized_insights"].([]any); !ok {
		t.Errorf("Expected insights array, got %v", resp["categorized_insights"])
	}
	if _, ok := resp["chat_history"].([]any); !ok {
		t.Errorf("Expected history array, got %v", resp["chat_history"])
	}
}

func TestGetSessionsList(t *testing.T) {
	r, store := setupTestRouter(&scriptedLLM{})
	store.sessions["a"] = &models.AnalysisSession{SessionID: "a"}
	store.sessions["b"] = &models.AnalysisSession{SessionID: "b"}

	w := doRequest(r, http.MethodGet, "/api/v1/analysis/sessions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(resp.Sessions))
	}
}

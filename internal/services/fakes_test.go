package services

import (
	"context"
	"errors"

	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/models"
)

// fakeLLM replays scripted responses in call order and records every request.
type fakeLLM struct {
	responses []string
	errs      []error
	calls     [][]llm.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	index := len(f.calls)
	f.calls = append(f.calls, messages)
	if index < len(f.errs) && f.errs[index] != nil {
		return "", f.errs[index]
	}
	if index < len(f.responses) {
		return f.responses[index], nil
	}
	return "", errors.New("no scripted response left")
}

// lastPrompt returns the content of the final message of the most recent call.
func (f *fakeLLM) lastPrompt() string {
	if len(f.calls) == 0 {
		return ""
	}
	call := f.calls[len(f.calls)-1]
	if len(call) == 0 {
		return ""
	}
	return call[len(call)-1].Content
}

// fakeSessionStore keeps sessions in a map and supports fault injection.
type fakeSessionStore struct {
	sessions        map[string]*models.AnalysisSession
	createErr       error
	updateErr       error
	appendErr       error
	analysisUpdates map[string]string
	insightUpdates  map[string]models.InsightList
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:        make(map[string]*models.AnalysisSession),
		analysisUpdates: make(map[string]string),
		insightUpdates:  make(map[string]models.InsightList),
	}
}

func (f *fakeSessionStore) Create(session *models.AnalysisSession) error {
	if f.createErr != nil {
		return &StorageError{Op: "session insert", Err: f.createErr}
	}
	f.sessions[session.SessionID] = session
	return nil
}

func (f *fakeSessionStore) Get(sessionID string) (*models.AnalysisSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return session, nil
}

func (f *fakeSessionStore) List() ([]models.AnalysisSession, error) {
	out := make([]models.AnalysisSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) UpdateAnalysis(sessionID, analysis string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return &NotFoundError{SessionID: sessionID}
	}
	session.InitialAnalysis = &analysis
	f.analysisUpdates[sessionID] = analysis
	return nil
}

func (f *fakeSessionStore) UpdateInsights(sessionID string, insights models.InsightList) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return &NotFoundError{SessionID: sessionID}
	}
	session.CategorizedInsights = insights
	f.insightUpdates[sessionID] = insights
	return nil
}

func (f *fakeSessionStore) AppendChat(sessionID string, turns ...models.ChatMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return &NotFoundError{SessionID: sessionID}
	}
	session.ChatHistory = append(session.ChatHistory, turns...)
	return nil
}

package services

import (
	"errors"

	"github.com/insightlab/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore is the durable session record contract the pipeline and the
// follow-up engine depend on. Partial updates are last-writer-wins;
// AppendChat is the one atomic read-modify-write.
type SessionStore interface {
	Create(session *models.AnalysisSession) error
	Get(sessionID string) (*models.AnalysisSession, error)
	List() ([]models.AnalysisSession, error)
	UpdateAnalysis(sessionID, analysis string) error
	UpdateInsights(sessionID string, insights models.InsightList) error
	AppendChat(sessionID string, turns ...models.ChatMessage) error
}

// SessionService implements SessionStore on the relational store.
type SessionService struct {
	db *gorm.DB
}

var _ SessionStore = &SessionService{}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

func (ss *SessionService) Create(session *models.AnalysisSession) error {
	if session.CategorizedInsights == nil {
		session.CategorizedInsights = models.InsightList{}
	}
	if session.ChatHistory == nil {
		session.ChatHistory = models.ChatHistory{}
	}
	if err := ss.db.Create(session).Error; err != nil {
		return &StorageError{Op: "session insert", Err: err}
	}
	return nil
}

func (ss *SessionService) Get(sessionID string) (*models.AnalysisSession, error) {
	var session models.AnalysisSession
	if err := ss.db.First(&session, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{SessionID: sessionID}
		}
		return nil, &StorageError{Op: "session lookup", Err: err}
	}
	return &session, nil
}

func (ss *SessionService) List() ([]models.AnalysisSession, error) {
	var sessions []models.AnalysisSession
	if err := ss.db.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, &StorageError{Op: "session scan", Err: err}
	}
	return sessions, nil
}

func (ss *SessionService) UpdateAnalysis(sessionID, analysis string) error {
	res := ss.db.Model(&models.AnalysisSession{}).
		Where("session_id = ?", sessionID).
		Update("initial_analysis", analysis)
	if res.Error != nil {
		return &StorageError{Op: "analysis update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{SessionID: sessionID}
	}
	return nil
}

func (ss *SessionService) UpdateInsights(sessionID string, insights models.InsightList) error {
	if insights == nil {
		insights = models.InsightList{}
	}
	res := ss.db.Model(&models.AnalysisSession{}).
		Where("session_id = ?", sessionID).
		Update("categorized_insights", insights)
	if res.Error != nil {
		return &StorageError{Op: "insights update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{SessionID: sessionID}
	}
	return nil
}

// AppendChat re-reads the row under a row lock before writing so two
// concurrent follow-up questions cannot lose each other's turns.
func (ss *SessionService) AppendChat(sessionID string, turns ...models.ChatMessage) error {
	err := ss.db.Transaction(func(tx *gorm.DB) error {
		var session models.AnalysisSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		history := append(session.ChatHistory, turns...)
		return tx.Model(&models.AnalysisSession{}).
			Where("session_id = ?", sessionID).
			Update("chat_history", history).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{SessionID: sessionID}
		}
		return &StorageError{Op: "chat history append", Err: err}
	}
	return nil
}

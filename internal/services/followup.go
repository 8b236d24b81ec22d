package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/models"
	"github.com/insightlab/backend/internal/storage"
	"github.com/insightlab/backend/internal/table"
)

const (
	// MaxReasoningCycles hard-caps the Thought/Action/Observation loop.
	MaxReasoningCycles = 15

	tableCacheTTL = 15 * time.Minute

	fallbackAnswer = "I could not reach a definite answer within the reasoning limit. Please try rephrasing the question or asking something more specific."
)

// loopState names the phases of the reasoning loop. The cap is enforced as a
// guarded transition out of thinking into a forced best-effort answer.
type loopState int

const (
	stateThinking loopState = iota
	stateActing
	stateObserving
	stateAnswering
)

var (
	finalAnswerPattern = regexp.MustCompile(`(?s)Final Answer:\s*(.+)`)
	actionPattern      = regexp.MustCompile(`(?s)Action:\s*(\S+)\s*.*?Action Input:\s*(.+)`)
	thoughtPattern     = regexp.MustCompile(`Thought:\s*(.+)`)
)

// FollowupEngine answers ad-hoc questions against a session's stored table
// through a bounded tool-using reasoning loop.
type FollowupEngine struct {
	llm         llm.Client
	sessions    SessionStore
	objects     storage.ObjectStore
	tableBucket string
	tables      *gocache.Cache
}

func NewFollowupEngine(client llm.Client, sessions SessionStore, objects storage.ObjectStore, tableBucket string) *FollowupEngine {
	if tableBucket == "" {
		tableBucket = DefaultTableBucket
	}
	return &FollowupEngine{
		llm:         client,
		sessions:    sessions,
		objects:     objects,
		tableBucket: tableBucket,
		tables:      gocache.New(tableCacheTTL, 2*tableCacheTTL),
	}
}

// Answer resolves the session, rebuilds the conversation context, runs the
// reasoning loop, and appends the new turn to the stored history. An unknown
// session id is always a NotFoundError; there is no in-process fallback.
func (fe *FollowupEngine) Answer(ctx context.Context, sessionID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &InputError{Msg: "question must not be empty"}
	}

	session, err := fe.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}

	t, err := fe.tableFor(ctx, session)
	if err != nil {
		return "", err
	}

	db, err := openTableDB(t)
	if err != nil {
		return "", &StorageError{Op: "table load", Err: err}
	}
	defer db.Close()

	messages := fe.buildContext(session, t, question)

	answer, err := fe.reason(ctx, sessionID, db, messages)
	if err != nil {
		return "", err
	}

	if err := fe.sessions.AppendChat(sessionID,
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant, Content: answer},
	); err != nil {
		logger.WithSession(sessionID, "followup").WithError(err).Error("Could not persist chat turn")
	}
	return answer, nil
}

// tableFor returns the session's table, downloading and decoding the blob on
// a cache miss. The cache is only ever filled from the durable store, so it
// cannot answer for a session the store does not know.
func (fe *FollowupEngine) tableFor(ctx context.Context, session *models.AnalysisSession) (*table.Table, error) {
	if cached, ok := fe.tables.Get(session.SessionID); ok {
		return cached.(*table.Table), nil
	}

	blob, err := fe.objects.Download(ctx, fe.tableBucket, session.TableStoragePath)
	if err != nil {
		return nil, &StorageError{Op: "table download", Err: err}
	}
	t, err := table.Decode(blob)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	fe.tables.Set(session.SessionID, t, gocache.DefaultExpiration)
	return t, nil
}

// buildContext assembles the ordered conversation: system instructions, an
// optional context message carrying the stored analysis, the stored history
// in original order, then the new question.
func (fe *FollowupEngine) buildContext(session *models.AnalysisSession, t *table.Table, question string) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(FOLLOWUP_SYSTEM_PROMPT, tableSchemaLine(t))},
	}
	if session.InitialAnalysis != nil && *session.InitialAnalysis != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Initial data analysis: " + *session.InitialAnalysis,
		})
	}
	for _, turn := range session.ChatHistory {
		role := llm.RoleUser
		if turn.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}

// reason drives the Thought -> Action -> Observation cycles until the model
// produces a final answer or the cycle cap forces a best-effort one.
// Malformed step output becomes a corrective observation, not an abort.
func (fe *FollowupEngine) reason(ctx context.Context, sessionID string, db *sql.DB, messages []llm.Message) (string, error) {
	transcript := messages
	state := stateThinking
	cycles := 0
	lastThought := ""

	var output, toolName, toolInput, observation, answer string

	for state != stateAnswering {
		switch state {
		case stateThinking:
			if cycles >= MaxReasoningCycles {
				// Cap reached: forced transition to a best-effort answer
				// instead of another model call.
				logger.WithSession(sessionID, "followup").Warn("Reasoning loop hit cycle cap, returning best-effort answer")
				if lastThought != "" {
					answer = fmt.Sprintf("I ran out of reasoning steps. Based on what I found so far: %s", lastThought)
				} else {
					answer = fallbackAnswer
				}
				state = stateAnswering
				continue
			}
			cycles++

			out, err := fe.llm.Complete(ctx, transcript)
			if err != nil {
				return "", &UpstreamError{Err: err}
			}
			output = out

			if m := thoughtPattern.FindStringSubmatch(output); m != nil {
				lastThought = strings.TrimSpace(m[1])
			}
			if m := finalAnswerPattern.FindStringSubmatch(output); m != nil {
				answer = strings.TrimSpace(m[1])
				state = stateAnswering
				continue
			}
			if m := actionPattern.FindStringSubmatch(output); m != nil {
				toolName = strings.TrimSpace(m[1])
				toolInput = strings.TrimSpace(m[2])
				state = stateActing
				continue
			}
			// Wrong step format: feed corrective guidance back into the
			// loop; the cycle is still consumed.
			observation = "Observation: your last message did not follow the required format. Respond with either a Thought/Action/Action Input step using the execute_sql tool, or a Final Answer."
			state = stateObserving

		case stateActing:
			if toolName != "execute_sql" {
				observation = fmt.Sprintf("Observation: unknown tool %q. The only available tool is execute_sql.", toolName)
			} else if result, err := executeTableSQL(db, toolInput); err != nil {
				logger.WithSession(sessionID, "followup").WithError(err).Debug("Query in reasoning step failed")
				observation = fmt.Sprintf("Observation: query failed: %v. Fix the query and try again.", err)
			} else {
				observation = "Observation:\n" + result
			}
			state = stateObserving

		case stateObserving:
			transcript = appendExchange(transcript, output, observation)
			state = stateThinking
		}
	}

	return answer, nil
}

func appendExchange(transcript []llm.Message, modelOutput, observation string) []llm.Message {
	return append(transcript,
		llm.Message{Role: llm.RoleAssistant, Content: modelOutput},
		llm.Message{Role: llm.RoleUser, Content: observation},
	)
}

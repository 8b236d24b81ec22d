package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/table"
)

const (
	// AnalysisChunkSize is the number of rows summarized per completion.
	AnalysisChunkSize = 100

	// NoDataAnalysis is returned without any model call when there are no
	// rows to analyze.
	NoDataAnalysis = "No data provided for analysis."
)

// ChunkedAnalyzer turns a loaded table into the session's initial analysis,
// one completion per row chunk, strictly in order.
type ChunkedAnalyzer struct {
	llm      llm.Client
	sessions SessionStore
}

func NewChunkedAnalyzer(client llm.Client, sessions SessionStore) *ChunkedAnalyzer {
	return &ChunkedAnalyzer{llm: client, sessions: sessions}
}

// Analyze produces the combined analysis text. A failed chunk degrades to an
// inline error marker instead of aborting the run; a failed persistence is
// logged and the in-memory result still returned.
func (ca *ChunkedAnalyzer) Analyze(ctx context.Context, t *table.Table, sessionID string) string {
	if t.IsEmpty() {
		return NoDataAnalysis
	}

	chunkCount := (t.RowCount() + AnalysisChunkSize - 1) / AnalysisChunkSize
	parts := make([]string, 0, chunkCount)

	for index := 0; index < chunkCount; index++ {
		start := index * AnalysisChunkSize
		end := start + AnalysisChunkSize
		if end > t.RowCount() {
			end = t.RowCount()
		}

		tableString := renderChunk(t, start, end)
		prompt := fmt.Sprintf(CHUNK_ANALYSIS_PROMPT, tableString)

		logger.WithLLM(sessionID, "chunk_analysis").WithField("chunk", index+1).Debug("Submitting chunk for analysis")

		result, err := ca.llm.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
		if err != nil {
			logger.WithLLM(sessionID, "chunk_analysis").WithError(err).Error("Chunk analysis failed")
			parts = append(parts, fmt.Sprintf("Chunk %d Error: %v\n", index+1, err))
			continue
		}
		parts = append(parts, fmt.Sprintf("Chunk %d Summary:\n%s\n", index+1, result))
	}

	combined := strings.Join(parts, "\n\n")

	if sessionID != "" {
		if err := ca.sessions.UpdateAnalysis(sessionID, combined); err != nil {
			logger.WithSession(sessionID, "analyzer").WithError(err).Error("Could not persist initial analysis")
		}
	}
	return combined
}

// renderChunk formats rows [start, end) as a header line plus one
// comma-joined line per row, missing values rendered as empty strings.
func renderChunk(t *table.Table, start, end int) string {
	lines := make([]string, 0, end-start+1)
	lines = append(lines, strings.Join(t.Columns, ", "))
	for _, row := range t.Rows[start:end] {
		fields := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				fields[i] = table.CellString(row[i])
			}
		}
		lines = append(lines, strings.Join(fields, ", "))
	}
	return strings.Join(lines, "\n")
}

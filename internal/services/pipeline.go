package services

import (
	"context"

	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/models"
	"github.com/insightlab/backend/internal/table"
)

// PipelineState threads through the analysis stages. Each stage reads a
// subset and writes a subset; an error recorded early must not crash later
// stages, which tolerate the missing upstream fields and degrade.
type PipelineState struct {
	Input             []map[string]any
	Table             *table.Table
	SessionID         string
	SourceDescription string
	Analysis          string
	Tags              []string
	Insights          models.InsightList
	Err               error
}

// PipelineResult is the well-formed response every run produces, with
// explicit (possibly empty) fields even on failure.
type PipelineResult struct {
	SessionID string             `json:"session_id"`
	Analysis  string             `json:"analysis"`
	Tags      []string           `json:"tags"`
	Insights  models.InsightList `json:"insights"`
	Response  string             `json:"response"`
	Err       error              `json:"-"`
}

// AnalysisPipeline runs Data Loader, Chunked Analyzer, Tag Extractor and
// Insight Extractor in strict sequence over one shared state.
type AnalysisPipeline struct {
	loader   *DataLoader
	analyzer *ChunkedAnalyzer
	tags     *TagExtractor
	insights *InsightExtractor
}

func NewAnalysisPipeline(loader *DataLoader, analyzer *ChunkedAnalyzer, tags *TagExtractor, insights *InsightExtractor) *AnalysisPipeline {
	return &AnalysisPipeline{loader: loader, analyzer: analyzer, tags: tags, insights: insights}
}

func (p *AnalysisPipeline) Run(ctx context.Context, records []map[string]any) *PipelineResult {
	state := &PipelineState{Input: records}

	p.runLoad(ctx, state)
	p.runAnalyze(ctx, state)
	p.runTags(ctx, state)
	p.runInsights(ctx, state)

	return &PipelineResult{
		SessionID: state.SessionID,
		Analysis:  state.Analysis,
		Tags:      state.Tags,
		Insights:  state.Insights,
		Response:  state.Analysis,
		Err:       state.Err,
	}
}

func (p *AnalysisPipeline) runLoad(ctx context.Context, state *PipelineState) {
	result, err := p.loader.Load(ctx, state.Input)
	if err != nil {
		logger.Error("Data load failed", map[string]interface{}{"error": err.Error()})
		state.Err = err
		return
	}
	state.SessionID = result.SessionID
	state.Table = result.Table
	state.SourceDescription = result.SourceDescription
}

func (p *AnalysisPipeline) runAnalyze(ctx context.Context, state *PipelineState) {
	state.Analysis = p.analyzer.Analyze(ctx, state.Table, state.SessionID)
}

func (p *AnalysisPipeline) runTags(ctx context.Context, state *PipelineState) {
	if state.Analysis == NoDataAnalysis {
		state.Tags = []string{}
		return
	}
	state.Tags = p.tags.Extract(ctx, state.Analysis)
}

func (p *AnalysisPipeline) runInsights(ctx context.Context, state *PipelineState) {
	if state.Analysis == NoDataAnalysis {
		state.Insights = p.insights.Extract(ctx, "", state.SessionID)
		return
	}
	state.Insights = p.insights.Extract(ctx, state.Analysis, state.SessionID)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/insightlab/backend/internal/logger"
	"github.com/insightlab/backend/internal/models"
	"github.com/insightlab/backend/internal/storage"
	"github.com/insightlab/backend/internal/table"
)

const (
	// DefaultUploadBucket holds user-submitted spreadsheets.
	DefaultUploadBucket = "uploads"
	// DefaultTableBucket holds serialized table blobs.
	DefaultTableBucket = "processeddfs"

	tableBlobPrefix = "processed_data"
	tableBlobExt    = "tbl"

	// storedSheetType marks an input record pointing at an uploaded
	// spreadsheet instead of carrying inline data.
	storedSheetType = "stored_sheet"
)

// TableBlobPath returns the deterministic blob path for a session's table.
func TableBlobPath(sessionID string) string {
	return fmt.Sprintf("%s/%s.%s", tableBlobPrefix, sessionID, tableBlobExt)
}

// DataLoader resolves submitted input into a table and creates the session
// that anchors everything downstream.
type DataLoader struct {
	sessions     SessionStore
	objects      storage.ObjectStore
	parser       table.SheetParser
	uploadBucket string
	tableBucket  string
}

func NewDataLoader(sessions SessionStore, objects storage.ObjectStore, parser table.SheetParser, uploadBucket, tableBucket string) *DataLoader {
	if uploadBucket == "" {
		uploadBucket = DefaultUploadBucket
	}
	if tableBucket == "" {
		tableBucket = DefaultTableBucket
	}
	return &DataLoader{
		sessions:     sessions,
		objects:      objects,
		parser:       parser,
		uploadBucket: uploadBucket,
		tableBucket:  tableBucket,
	}
}

// LoadResult is what a successful load hands to the rest of the pipeline.
type LoadResult struct {
	SessionID         string
	Table             *table.Table
	SourceDescription string
}

// Load accepts exactly one input form: a single stored-sheet pointer record,
// or an inline list of uniform records. On success it has serialized the
// table, uploaded the blob, and inserted the session record.
func (dl *DataLoader) Load(ctx context.Context, records []map[string]any) (*LoadResult, error) {
	if len(records) == 0 {
		return nil, &InputError{Msg: "no input data provided"}
	}

	var (
		t      *table.Table
		source string
	)

	if path, ok := storedSheetPath(records); ok {
		source = fmt.Sprintf("Stored sheet: %s", path)
		data, err := dl.objects.Download(ctx, dl.uploadBucket, path)
		if err != nil {
			return nil, &StorageError{Op: "sheet download", Err: err}
		}
		t, err = dl.parser.Parse(data)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
	} else {
		source = "Directly provided data"
		t = table.FromRecords(records)
	}

	if t.IsEmpty() {
		return nil, &InputError{Msg: "no rows loaded, cannot create session"}
	}

	sessionID := uuid.NewString()
	blob, err := table.Encode(t)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	blobPath := TableBlobPath(sessionID)
	if err := dl.objects.Upload(ctx, dl.tableBucket, blobPath, blob); err != nil {
		return nil, &StorageError{Op: "table upload", Err: err}
	}

	session := &models.AnalysisSession{
		SessionID:           sessionID,
		SourceDescription:   source,
		TableStoragePath:    blobPath,
		InitialAnalysis:     nil,
		CategorizedInsights: models.InsightList{},
		ChatHistory:         models.ChatHistory{},
		ExpiresAt:           time.Now().Add(models.SessionTTL),
	}
	if err := dl.sessions.Create(session); err != nil {
		// The blob upload is not rolled back here; an orphaned blob is a
		// known, monitored gap.
		logger.WithSession(sessionID, "data_loader").WithError(err).Error("Session insert failed after blob upload")
		return nil, err
	}

	logger.WithSession(sessionID, "data_loader").WithField("rows", t.RowCount()).Info("Session created")
	return &LoadResult{SessionID: sessionID, Table: t, SourceDescription: source}, nil
}

// storedSheetPath reports whether the payload is the single-record stored
// sheet pointer form and extracts its path.
func storedSheetPath(records []map[string]any) (string, bool) {
	if len(records) != 1 {
		return "", false
	}
	rec := records[0]
	if typ, _ := rec["type"].(string); typ != storedSheetType {
		return "", false
	}
	path, _ := rec["path"].(string)
	if path == "" {
		return "", false
	}
	return path, true
}

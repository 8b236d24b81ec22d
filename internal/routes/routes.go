package routes

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/insightlab/backend/internal/controllers"
	"github.com/insightlab/backend/internal/llm"
	"github.com/insightlab/backend/internal/services"
	"github.com/insightlab/backend/internal/storage"
	"github.com/insightlab/backend/internal/table"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB) {
	client := llm.NewHTTPClient(
		os.Getenv("LLM_BASE_URL"),
		os.Getenv("LLM_API_KEY"),
		os.Getenv("LLM_MODEL"),
	)

	var objects storage.ObjectStore
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		objects = storage.NewSupabaseStore(url, os.Getenv("SUPABASE_SERVICE_KEY"))
	} else {
		// Local development fallback; blobs do not survive a restart.
		objects = storage.NewMemoryStore()
	}

	sessions := services.NewSessionService(db)
	loader := services.NewDataLoader(sessions, objects, table.NewXLSXParser(),
		os.Getenv("UPLOAD_BUCKET"), os.Getenv("TABLE_BUCKET"))
	analyzer := services.NewChunkedAnalyzer(client, sessions)
	tags := services.NewTagExtractor(client)
	insights := services.NewInsightExtractor(client, sessions)
	pipeline := services.NewAnalysisPipeline(loader, analyzer, tags, insights)
	followup := services.NewFollowupEngine(client, sessions, objects, os.Getenv("TABLE_BUCKET"))

	analysisController := controllers.NewAnalysisController(pipeline, followup, sessions)

	// API routes
	api := r.Group("/api/v1")
	{
		analysis := api.Group("/analysis")
		{
			analysis.POST("/invoke", analysisController.Invoke)
			analysis.POST("/chat", analysisController.Chat)
			analysis.GET("/sessions", analysisController.GetSessions)
			analysis.GET("/sessions/:id", analysisController.GetSession)
		}
	}
}

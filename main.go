package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/clipmind/clipmind/agents"
	"github.com/clipmind/clipmind/appconfig"
	"github.com/clipmind/clipmind/db"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/router"
	"github.com/clipmind/clipmind/search"
	"github.com/clipmind/clipmind/services"
	"github.com/clipmind/clipmind/tools"
	"github.com/clipmind/clipmind/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	dotenv.LoadEnv()

	ccfgg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfgg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	mongoClient := odm.ProvideMongoClient()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.InitClipmindDB(ctx, mongoClient, ccfgg.Tenant); err != nil {
		logger.Fatal("Failed to ensure DB indexes", zap.Error(err))
	}

	llmClient := llm.NewOpenAIClient(ccfgg.ChatModel, ccfgg.EmbeddingModel, ccfgg.OpenAIBaseURL)
	visionClient := llm.NewOpenAIClient(ccfgg.VisionModel, ccfgg.EmbeddingModel, ccfgg.OpenAIBaseURL)

	store := index.NewStore()
	chunker := index.ProvideChunker(ccfgg.ChunkMaxTokens, ccfgg.ChunkOverlap)
	pipeline := index.NewPipeline(chunker, llmClient, store)
	retriever := search.NewRetriever(store, llmClient, search.Options{})

	callTimeout := time.Duration(ccfgg.ToolTimeoutSeconds) * time.Second
	gateway := tools.NewGateway(tools.NewHTTPTransport(), map[string]string{
		tools.ToolAudioExtract: ccfgg.AudioExtractEndpoint,
		tools.ToolFrameExtract: ccfgg.FrameExtractEndpoint,
		tools.ToolTranscribe:   ccfgg.TranscribeEndpoint,
	}, tools.WithMaxAttempts(ccfgg.ToolMaxAttempts))

	jobs := db.ProvideJobRepository(mongoClient, ccfgg.Tenant)
	sessions := db.ProvideSessionRepository(mongoClient, ccfgg.Tenant)

	orchestrator := workflow.ProvideOrchestrator(gateway, visionClient, pipeline, jobs,
		workflow.WithCallTimeout(callTimeout))

	summaryAgent := agents.NewSummaryAgent(store, llmClient)
	registry := map[agents.Kind]agents.Agent{
		agents.KindGeneral:         agents.NewGeneralAgent(llmClient),
		agents.KindFrameProcessing: agents.NewFrameProcessingAgent(gateway, visionClient, callTimeout),
		agents.KindAudioProcessing: agents.NewAudioProcessingAgent(gateway, callTimeout),
		agents.KindRAG:             agents.NewRAGAgent(retriever, llmClient, ccfgg.RetrievalTopK),
		agents.KindSummary:         summaryAgent,
		agents.KindReport:          agents.NewReportAgent(summaryAgent, llmClient),
	}

	supervisor := router.NewSupervisor(llmClient)
	uploadService := services.ProvideUploadService(sessions, jobs, orchestrator)
	queryService := services.ProvideQueryService(supervisor, registry, pipeline, store, sessions, jobs)

	runConsole(ctx, uploadService, queryService)
}

// runConsole drives one interactive session from stdin. Commands:
// /upload <media-uri>, /status <job-id>, /quit; anything else is a query.
func runConsole(ctx context.Context, uploads *services.UploadService, queries *services.QueryService) {
	sessionID := uuid.New().String()
	logger.Info("Session started", zap.String("sessionId", sessionID))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	fmt.Println("clipmind ready. /upload <media-uri> to index a video, /quit to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/upload "):
			job, err := uploads.Upload(ctx, sessionID, strings.TrimSpace(strings.TrimPrefix(line, "/upload ")))
			if err != nil {
				fmt.Println("upload failed:", err)
				continue
			}
			fmt.Printf("processing started, job %s\n", job.ID)
		case strings.HasPrefix(line, "/status "):
			job, err := uploads.Status(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/status ")))
			if err != nil {
				fmt.Println("status failed:", err)
				continue
			}
			fmt.Printf("job %s: %s\n", job.ID, job.State)
		default:
			result, err := queries.Query(ctx, sessionID, line)
			if err != nil {
				fmt.Println("query failed:", err)
				continue
			}
			fmt.Printf("[%s] %s\n", result.AgentUsed, result.Answer)
			if result.DocumentURI != "" {
				fmt.Println("document:", result.DocumentURI)
			}
		}
	}
}

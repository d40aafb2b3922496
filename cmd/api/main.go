package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"carevault/internal/config"
	"carevault/internal/events"
	"carevault/internal/handlers"
	"carevault/internal/http"
	"carevault/internal/indexer"
	"carevault/internal/llm"
	"carevault/internal/loader"
	"carevault/internal/rag"
	"carevault/internal/service"
	"carevault/internal/storage"
	"carevault/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize vector store backend
	var vectorStore vectorstore.VectorStore
	switch cfg.VectorBackend {
	case "qdrant":
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)
		vectorStore = qdrantStore
	case "memory":
		slog.Warn("Using in-memory vector store; the index is lost on restart")
		vectorStore = vectorstore.NewMemoryStore()
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	// Document loading and chunking
	ocrEngine := loader.NewTesseractEngine(cfg.OCRLanguage)
	registry := loader.NewDefaultRegistry(ocrEngine)
	chunker, err := indexer.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}

	idx := indexer.New(embedder, vectorStore, chunkRepo, docRepo, cfg.QdrantCollection)

	// Read path: retrieval, context assembly, generation
	retriever := rag.NewRetriever(embedder, vectorStore, cfg.QdrantCollection, cfg.RetrievalTopK, cfg.RetrievalDocCap)
	assembler := rag.NewAssembler(cfg.ContextBudget)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	engine := rag.NewEngine(retriever, chunkRepo, assembler, llmClient)
	slog.Info("RAG engine initialized")

	assistant := service.NewAssistant(docRepo, registry, chunker, idx, engine, service.NewFileFetcher())

	// Optional Kafka consumer for document lifecycle notifications
	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, assistant, logger)
		if err != nil {
			log.Fatalf("Failed to create Kafka consumer: %v", err)
		}
		defer func() {
			_ = consumer.Close()
		}()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				slog.Error("Kafka consumer stopped", "error", err)
				stop()
			}
		}()
		slog.Info("Kafka consumer started", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
	}

	deps := &http.Deps{
		Query:     handlers.NewQueryHandler(assistant),
		Documents: handlers.NewDocumentsHandler(assistant),
		Stats:     handlers.NewStatsHandler(idx, cfg.EmbeddingModelName, cfg.MaxChunkSize, cfg.ChunkOverlap),
		Rebuild:   handlers.NewRebuildHandler(idx),
		Health:    handlers.NewHealthHandler(vectorStore, cfg.QdrantCollection, db),
		Logger:    logger,
	}
	router := http.NewRouter(deps)

	server := &nethttp.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		_ = server.Shutdown(context.Background())
	}()

	slog.Info("Server listening", "port", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

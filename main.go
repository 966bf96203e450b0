package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	api "tonedraft-backend/cmd/api"
	accountDelivery "tonedraft-backend/internal/account/delivery"
	accountdomain "tonedraft-backend/internal/account/domain"
	accountRepo "tonedraft-backend/internal/account/repository"
	"tonedraft-backend/internal/classify"
	draftDelivery "tonedraft-backend/internal/draft/delivery"
	draftdomain "tonedraft-backend/internal/draft/domain"
	draftRepo "tonedraft-backend/internal/draft/repository"
	draftUsecase "tonedraft-backend/internal/draft/usecase"
	"tonedraft-backend/internal/ingest"
	profileDelivery "tonedraft-backend/internal/profile/delivery"
	profiledomain "tonedraft-backend/internal/profile/domain"
	profileRepo "tonedraft-backend/internal/profile/repository"
	profileUsecase "tonedraft-backend/internal/profile/usecase"
	providerDelivery "tonedraft-backend/internal/provider/delivery"
	providerdomain "tonedraft-backend/internal/provider/domain"
	providerRepo "tonedraft-backend/internal/provider/repository"
	providerUsecase "tonedraft-backend/internal/provider/usecase"
	"tonedraft-backend/internal/queue"
	"tonedraft-backend/internal/worker"
	"tonedraft-backend/pkg/chroma"
	"tonedraft-backend/pkg/config"
	"tonedraft-backend/pkg/database"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.EmailAccount{},
		&providerdomain.LLMProviderConfig{},
		&profiledomain.ToneProfile{},
		&profiledomain.SentMessage{},
		&draftdomain.DraftTracking{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	accounts := accountRepo.NewAccountRepository(db)
	providers := providerRepo.NewProviderRepository(db)
	profiles := profileRepo.NewProfileRepository(db)
	sentMessages := profileRepo.NewSentMessageRepository(db)
	drafts := draftRepo.NewDraftRepository(db)

	// Tone profile store and provider resolver
	profileStore := profileUsecase.NewStore(profiles)
	resolver := providerUsecase.NewResolver(providers, cfg.MasterEncryptionKey, cfg.LLMTimeout)
	classifier := classify.NewHeuristicClassifier()

	// Initialize Chroma client for context retrieval
	// The pipeline degrades to empty context when the index is unavailable.
	var vectorClient *chroma.Client
	if cfg.ChromaAPIKey != "" {
		vectorClient, err = chroma.NewClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client (context retrieval disabled): %v", err)
			vectorClient = nil
		} else {
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Context retrieval will not be available.")
	}

	var vectorSearch draftUsecase.VectorSearchService
	var vectorIndexer ingest.VectorIndexer
	if vectorClient != nil {
		vectorSearch = vectorClient
		vectorIndexer = vectorClient
	}

	orchestrator := draftUsecase.NewOrchestrator(
		drafts,
		profileStore,
		resolver,
		classifier,
		vectorSearch,
		cfg.RetrievalK,
		cfg.VectorQueryTimeout,
		cfg.LLMTimeout,
	)

	// Job queue with the email and tone worker pools
	broker := queue.NewMemoryBroker(queue.RetryPolicy{
		MaxAttempts: cfg.QueueMaxAttempts,
		BaseBackoff: cfg.QueueBaseBackoff,
		MaxBackoff:  cfg.QueueMaxBackoff,
	})
	broker.Subscribe(worker.QueueEmailJobs, cfg.EmailWorkerCount, worker.NewEmailHandler(accounts, orchestrator))
	broker.Subscribe(worker.QueueToneJobs, cfg.ToneWorkerCount, worker.NewToneProfileHandler(sentMessages, profileStore, cfg.ProfileWindowSize))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker.Start(ctx)
	defer broker.Stop()

	// Mail event ingestion (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		topicName := cfg.MailEventsTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		ingestService, err := ingest.NewService(
			cfg.GoogleProjectID,
			topicName,
			cfg.GoogleCredentials,
			broker,
			accounts,
			drafts,
			sentMessages,
			classifier,
			vectorIndexer,
		)
		if err != nil {
			log.Printf("Warning: Failed to initialize ingest service: %v", err)
		} else {
			go ingestService.Start(ctx)
			log.Printf("Ingest service started for topic %s", topicName)
		}
	} else {
		log.Println("GOOGLE_PROJECT_ID not set, mail event ingestion disabled")
	}

	// HTTP API
	accountHandler := accountDelivery.NewAccountHandler(accounts, cfg.MasterEncryptionKey)
	providerHandler := providerDelivery.NewProviderHandler(providers, cfg.MasterEncryptionKey)
	profileHandler := profileDelivery.NewProfileHandler(profiles, profileStore, broker)
	draftHandler := draftDelivery.NewDraftHandler(drafts, broker)

	r := gin.Default()
	api.SetupRoutes(r, accountHandler, providerHandler, profileHandler, draftHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

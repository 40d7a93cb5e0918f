package main

import (
	"coachdesk/coaching-app/internal/api"
	"coachdesk/coaching-app/internal/config"
	"coachdesk/coaching-app/internal/repository/mongo"
	"coachdesk/coaching-app/internal/service"
	"coachdesk/coaching-app/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Coaching App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureDraftPlanIndexes(ctx, appDB.Collection("draft_plans"))
		mongo.EnsureDraftSessionIndexes(ctx, appDB.Collection("draft_sessions"))
		mongo.EnsureProposalIndexes(ctx, appDB.Collection("plan_change_proposals"))
		mongo.EnsureAuditIndexes(ctx, appDB.Collection("plan_change_audits"))
		mongo.EnsureSnapshotIndexes(ctx, appDB.Collection("publish_snapshots"))
		mongo.EnsurePublishAckIndexes(ctx, appDB.Collection("publish_acks"))
		mongo.EnsureCalendarIndexes(ctx, appDB.Collection("calendar_entries"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Snapshot Archive ---
	var archive storage.SnapshotArchive
	if cfg.Archive.BucketName != "" {
		log.Println("Initializing snapshot archive storage...")
		archive, err = storage.NewS3Archive(cfg.Archive)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize snapshot archive: %v", err)
		}
	} else {
		log.Println("Snapshot archival disabled (no bucket configured).")
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	planRepo := mongo.NewMongoDraftPlanRepository(appDB)
	sessionRepo := mongo.NewMongoDraftSessionRepository(appDB)
	proposalRepo := mongo.NewMongoProposalRepository(appDB)
	auditRepo := mongo.NewMongoAuditRepository(appDB)
	snapshotRepo := mongo.NewMongoSnapshotRepository(appDB)
	ackRepo := mongo.NewMongoPublishAckRepository(appDB)
	calendarRepo := mongo.NewMongoCalendarRepository(appDB)
	txRunner := mongo.NewMongoTxRunner(dbClient)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	coachService := service.NewCoachService(userRepo)
	planService := service.NewPlanService(userRepo, planRepo, sessionRepo, cfg.Plan.BlockGranularityMinutes)
	publishService := service.NewPublishService(planRepo, sessionRepo, snapshotRepo, ackRepo, txRunner, archive)
	proposalService := service.NewProposalService(planRepo, sessionRepo, proposalRepo, auditRepo, txRunner, publishService, cfg.Plan.BlockGranularityMinutes)
	materializer := service.NewMaterializerService(planRepo, snapshotRepo, calendarRepo, cfg.Calendar.OriginTag)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, coachService, planService, proposalService, publishService, materializer)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rewear-api/internal/config"
	"github.com/rewear-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/rewear-api/internal/infrastructure/jwt"
	s3infra "github.com/rewear-api/internal/infrastructure/s3"
	"github.com/rewear-api/internal/infrastructure/sns"
	transporthttp "github.com/rewear-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider is optional; auth middleware is disabled without it.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for item images.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SNS push publisher is optional; notifications stay in-store without it.
	var pusher sns.Publisher
	if p, err := sns.NewPublisher(cfg); err == nil {
		pusher = p
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ItemRepo:         dynamo.NewItemRepo(dynamoClient, cfg.DynamoTables.Items),
		SwapRepo:         dynamo.NewSwapRepo(dynamoClient, cfg.DynamoTables.Swaps),
		RedemptionRepo:   dynamo.NewRedemptionRepo(dynamoClient, cfg.DynamoTables.Redemptions),
		PointsRepo:       dynamo.NewPointsRepo(dynamoClient, cfg.DynamoTables.Points),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		S3Store:          s3Store,
		Pusher:           pusher,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-hub/attachments"
	"chat-hub/infrastructure/httpapi"
	"chat-hub/infrastructure/ws"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/services"

	"github.com/Netflix/go-env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, index
// close) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()

	// 3. Core wiring
	metrics := observability.NewMetrics()
	health, err := observability.NewHealth(log)
	if err != nil {
		return fmt.Errorf("health probe setup failed: %w", err)
	}

	moderator, err := buildModerator(config)
	if err != nil {
		return err
	}

	registry := runtime.NewRegistry(log)
	messageRepository := repositories.NewMessageRepository(db, log)
	messageIndex := repositories.NewMessageIndex(blugeWriter, log)
	router := runtime.NewRouter(log, registry, messageRepository, messageIndex, moderator, metrics)
	chatService := services.NewChatService(router, messageRepository, messageIndex)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Transports
	store, err := buildAttachmentStore(config, log)
	if err != nil {
		return err
	}
	wsHandler := ws.NewHandler(ctx, chatService, metrics, config.ConnectionBufferSize, log)
	api := httpapi.NewServer(log, chatService, store, metrics, health, config.MaxUploadSize)

	routes := api.Routes(wsHandler)
	if config.UploadBackend == "disk" {
		// The disk backend needs something to answer the URLs it hands out.
		routes.Handle("/uploads/*", http.StripPrefix("/uploads/",
			http.FileServer(http.Dir(config.UploadDir))))
	}

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: routes,
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat-hub server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}

func buildModerator(config Config) (*moderation.Moderator, error) {
	words := config.CensoredWordList()
	if len(words) == 0 {
		return nil, nil
	}
	replacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(words, replacement)
	if err != nil {
		return nil, fmt.Errorf("moderation setup failed: %w", err)
	}
	return moderator, nil
}

func buildAttachmentStore(config Config, log *slog.Logger) (attachments.Store, error) {
	switch config.UploadBackend {
	case "s3":
		client := s3.New(s3.Options{
			Region: config.AWSRegion,
			Credentials: aws.CredentialsProviderFunc(
				func(ctx context.Context) (aws.Credentials, error) {
					return aws.Credentials{
						AccessKeyID:     config.AWSAccessKeyID,
						SecretAccessKey: config.AWSSecretAccessKey,
					}, nil
				}),
		})
		return attachments.NewS3Store(client, config.AWSBucketName, config.AWSRegion,
			config.AWSPublicBaseURL, config.MaxUploadSize, log), nil
	case "disk":
		return attachments.NewDiskStore(config.UploadDir, config.UploadBaseURL,
			config.MaxUploadSize, log)
	default:
		return nil, fmt.Errorf("unknown UPLOAD_BACKEND %q", config.UploadBackend)
	}
}

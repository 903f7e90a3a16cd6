package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/pos-settlement/internal/api"
	"github.com/example/pos-settlement/internal/auth"
	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/checkout"
	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/invoice"
	"github.com/example/pos-settlement/internal/domain/ledger"
	"github.com/example/pos-settlement/internal/domain/payment"
	"github.com/example/pos-settlement/internal/infrastructure/journal"
	"github.com/example/pos-settlement/internal/infrastructure/kafka"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	backendURL := getEnv("BACKEND_URL", "http://localhost:3000/api")
	backendAPIKey := os.Getenv("BACKEND_API_KEY")
	if backendAPIKey == "" {
		log.Fatal("[API] BACKEND_API_KEY environment variable is required")
	}
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "settlement-events")
	postgresConnStr := os.Getenv("DATABASE_URL")
	currency := getEnv("GATEWAY_CURRENCY", "INR")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("[API] JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("[API] JWT_SECRET must be at least 32 characters long")
	}
	operatorID := getEnv("OPERATOR_ID", "op-001")
	operatorPasswordHash := os.Getenv("OPERATOR_PASSWORD_HASH")
	if operatorPasswordHash == "" {
		log.Fatal("[API] OPERATOR_PASSWORD_HASH environment variable is required")
	}
	terminal := getEnv("TERMINAL_NAME", "counter-1")

	log.Println("[API] ========================================")
	log.Println("[API] POS Settlement Terminal")
	log.Println("[API] ========================================")
	log.Printf("[API] Backend: %s", backendURL)
	log.Printf("[API] Kafka: %v", kafkaBrokers)
	log.Printf("[API] Topic: %s", kafkaTopic)
	log.Printf("[API] Terminal: %s", terminal)

	// Backend client: products, customers, invoices, payments
	client := backend.NewClient(backendURL, backendAPIKey)

	// Kafka producer for settlement events
	producer := kafka.NewProducer(kafkaBrokers, kafkaTopic)
	defer producer.Close()

	// Settlement journal: PostgreSQL when configured, in-memory otherwise
	var (
		recorder journal.Recorder
		orphans  journal.OrphanStore
	)
	if postgresConnStr != "" {
		db, err := journal.ConnectPostgres(postgresConnStr)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		pg := journal.NewPostgresJournal(db, producer)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("[API] Failed to ensure journal schema: %v", err)
		}
		recorder, orphans = pg, pg
		log.Println("[API] Journal: PostgreSQL")
	} else {
		mem := journal.NewMemoryJournal(producer)
		recorder, orphans = mem, mem
		log.Println("[API] Journal: in-memory (DATABASE_URL not set)")
	}

	// Catalog and ledgers
	products := catalog.NewStore(client)
	customers := ledger.NewCustomerLedger(client)
	invoices := ledger.NewInvoiceLedger(client)

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := products.Refresh(startCtx); err != nil {
		log.Fatalf("[API] Failed to load catalog: %v", err)
	}
	if err := customers.Refresh(startCtx); err != nil {
		log.Printf("[API] Failed to load customers: %v", err)
	}
	if err := invoices.Refresh(startCtx); err != nil {
		log.Printf("[API] Failed to load invoices: %v", err)
	}
	startCancel()
	log.Printf("[API] Catalog loaded: %d products", len(products.List()))

	// Domain services
	assembler := invoice.NewAssembler(client)
	orchestrator := payment.NewOrchestrator(client, currency)
	refunds := payment.NewRefundCoordinator(client, recorder)
	controller := checkout.NewController(
		products,
		assembler,
		client,
		orchestrator,
		recorder,
		orphans,
		products,
		customers,
		invoices,
	)

	// JWT service
	jwtService := auth.NewJWTService(
		jwtSecret,
		15*time.Minute, // Access token expiry
		7*24*time.Hour, // Refresh token expiry (7 days)
	)

	// API
	handlers := api.NewHandlers(controller, products, customers, invoices, refunds, client, currency)
	authHandlers := api.NewAuthHandlers(api.OperatorCredentials{
		OperatorID:   operatorID,
		PasswordHash: operatorPasswordHash,
		Terminal:     terminal,
		Role:         getEnv("OPERATOR_ROLE", "cashier"),
	}, jwtService)
	router := api.NewRouter(handlers, authHandlers, jwtService)

	// Start HTTP server
	server := &http.Server{
		Addr:    getEnv("LISTEN_ADDR", ":8080"),
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

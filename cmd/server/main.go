package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kbenslimane/storefront/internal/accounts"
	"github.com/kbenslimane/storefront/internal/catalog"
	"github.com/kbenslimane/storefront/internal/config"
	"github.com/kbenslimane/storefront/internal/events"
	"github.com/kbenslimane/storefront/internal/handlers"
	"github.com/kbenslimane/storefront/internal/logging"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
	loggingmw "github.com/kbenslimane/storefront/internal/middleware/logging"
	"github.com/kbenslimane/storefront/internal/mail"
	"github.com/kbenslimane/storefront/internal/orders"
	"github.com/kbenslimane/storefront/internal/search"
	"github.com/kbenslimane/storefront/internal/storage"
	httpserver "github.com/kbenslimane/storefront/internal/transport/http"
	"github.com/kbenslimane/storefront/internal/validation"
	"github.com/kbenslimane/storefront/internal/verification"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	store, err := storage.NewDiskStore(configuration.STORAGE_DIR)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	producer := events.NewProducer([]string{configuration.KAFKA_ADDRESS})

	var indexer *search.Indexer
	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := search.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		indexer = &search.Indexer{ES: esClient, Index: search.ProductIndex}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: search.ProductIndex}
	}

	sender := &mail.SMTPSender{
		Host: configuration.SMTP_HOST,
		Port: configuration.SMTP_PORT,
		From: configuration.SMTP_FROM,
	}

	codes := &verification.Service{DB: db}
	accountSvc := &accounts.Service{DB: db, Codes: codes, Mail: sender, Log: logger}
	catalogSvc := &catalog.Service{DB: db, Store: store, Indexer: indexer, Log: logger}
	orderSvc := &orders.Service{DB: db, Store: store, Log: logger}
	tokens := &auth.TokenService{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	e.Validator = validation.New()

	deps := httpserver.Deps{
		Tokens:       tokens,
		AuthHandler:  &handlers.AuthHandler{Accounts: accountSvc, Tokens: tokens, Producer: producer},
		Storefront:   &handlers.StorefrontHandler{Catalog: catalogSvc},
		Orders:       &handlers.OrderHandler{Orders: orderSvc, Producer: producer},
		StaffOrders:  &handlers.StaffOrderHandler{Orders: orderSvc, Producer: producer},
		AdminCatalog: &handlers.AdminCatalogHandler{Catalog: catalogSvc, Producer: producer},
		AdminUsers:   &handlers.AdminUserHandler{Accounts: accountSvc},
		Search:       searchHandler,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

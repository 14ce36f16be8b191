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

	"github.com/joho/godotenv"
	"github.com/redmoonthebest/morozhenka/backend/internal/config"
	"github.com/redmoonthebest/morozhenka/backend/internal/handler"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/ai"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/order"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/session"
	"github.com/redmoonthebest/morozhenka/backend/internal/transport/matrix"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := session.NewMemoryStore()

	// Initialize the language model service
	var extractor collect.Extractor
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing in degraded mode - проверьте переменные окружения для LLM")
		} else {
			log.Println("AI service initialized successfully")
			extractor = aiService
		}
	} else {
		log.Println("Учетные данные LLM не настроены, извлечение и генерация ответов работать не будут")
	}

	var orders order.Sink
	if cfg.Order.Enabled() {
		orders = order.NewClient(cfg.Order.BackendURL)
		log.Printf("order hand-off configured for %s", cfg.Order.BackendURL)
	} else {
		orders = order.LogSink{}
		log.Println("ORDER_BACKEND_URL не задан, завершённые заказы будут только логироваться")
	}

	engine := collect.NewEngine(store, extractor, orders)

	// Start the Matrix bridge when credentials are present
	if cfg.Matrix.Enabled() {
		bridge, err := matrix.NewBridge(cfg.Matrix, engine)
		if err != nil {
			log.Printf("warning: failed to initialize matrix bridge: %v", err)
		} else {
			go func() {
				if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("matrix bridge stopped: %v", err)
				}
			}()
			log.Println("Matrix bridge initialized successfully")
		}
	} else {
		log.Println("Учетные данные Matrix не настроены, мост отключен")
	}

	router := handler.NewRouter(engine)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Morozhenka backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

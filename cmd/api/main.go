package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ricardoia-chat/internal/config"
	apihttp "ricardoia-chat/internal/http"
	"ricardoia-chat/internal/llm"
	"ricardoia-chat/internal/service"
	"ricardoia-chat/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store open", zap.Error(err))
	}
	defer st.Close()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	limiter := service.NewChatRateLimiter(st.Redis, cfg.RateLimitWindow, cfg.RateLimitMax)
	chatSvc := service.NewChatService(logger, st.Turns, llmClient, limiter, service.ChatOptions{
		HistoryWindow:   cfg.ChatHistoryWindow,
		MaxMessageChars: cfg.ChatMaxMessageChars,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		Temperature:     cfg.LLMTemperature,
		RetentionTurns:  cfg.ChatRetentionTurns,
		RequestTimeout:  cfg.ChatRequestTimeout,
	})

	chatHandler := apihttp.NewChatHandler(logger, chatSvc, cfg.ChatStreamDefault)
	convHandler := apihttp.NewConversationHandler(logger, st.Turns)
	router := apihttp.NewRouter(logger, chatHandler, convHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("model", cfg.LLMModel),
		zap.Bool("rate_limited", limiter != nil),
	)

	// El store se cierra recien despues de que terminan los streams en curso.
	if err := apihttp.RunServer(ctx, server, ln, cfg.ShutdownTimeout); err != nil {
		logger.Error("server shutdown", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

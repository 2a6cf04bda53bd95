// File: cmd/server/main.go
package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"
    "time"

    "github.com/glebarez/sqlite"
    "github.com/gorilla/mux"
    "gorm.io/gorm"

    "github.com/hyewonk/go-datatalk/internal/config"
    "github.com/hyewonk/go-datatalk/internal/domain"
    "github.com/hyewonk/go-datatalk/internal/handlers"
    "github.com/hyewonk/go-datatalk/internal/middleware"
    chatrepo "github.com/hyewonk/go-datatalk/internal/repository/chat"
    datasetrepo "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    messagerepo "github.com/hyewonk/go-datatalk/internal/repository/message"
    userrepo "github.com/hyewonk/go-datatalk/internal/repository/user"
    "github.com/hyewonk/go-datatalk/internal/services"
    "github.com/hyewonk/go-datatalk/internal/services/agent"
    "github.com/hyewonk/go-datatalk/internal/services/ai"
    "github.com/hyewonk/go-datatalk/internal/services/chart"
    "github.com/hyewonk/go-datatalk/internal/services/ingest"
    "github.com/hyewonk/go-datatalk/internal/services/query"
)

const chartRenderTimeout = 30 * time.Second

func corsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
        w.Header().Set("Access-Control-Allow-Credentials", "true")
        w.Header().Set("Access-Control-Max-Age", "86400")

        if r.Method == "OPTIONS" {
            w.WriteHeader(http.StatusOK)
            return
        }

        next.ServeHTTP(w, r)
    })
}

func main() {
    cfg := config.Load()
    logger := services.NewLogger("datatalk")

    chartDir := filepath.Join(cfg.DataDir, "charts")
    if err := os.MkdirAll(chartDir, 0o755); err != nil {
        log.Fatalf("FATAL: Failed to create chart directory: %v", err)
    }

    db, err := gorm.Open(sqlite.Open(filepath.Join(cfg.DataDir, "datatalk.db")), &gorm.Config{})
    if err != nil {
        log.Fatalf("DB Error: %v", err)
    }
    if err := db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.Message{}, &domain.Dataset{}); err != nil {
        log.Fatalf("DB Migration Error: %v", err)
    }

    // --- Repositories ---
    userRepo := userrepo.NewGormUserRepository(db)
    chatRepo := chatrepo.NewChatRepository(db)
    messageRepo := messagerepo.NewMessageRepository(db)
    datasetRepo := datasetrepo.NewDatasetRepository(db)

    // --- Model gateway ---
    aiConfig := ai.DefaultConfig()
    aiConfig.APIKey = cfg.LLMAPIKey
    aiConfig.BaseURL = cfg.LLMBaseURL
    aiConfig.Model = cfg.LLMModel
    if cfg.HistoryTokenBudget > 0 {
        aiConfig.HistoryTokenBudget = cfg.HistoryTokenBudget
    }
    if err := aiConfig.Validate(); err != nil {
        log.Fatalf("FATAL: Invalid LLM configuration: %v", err)
    }
    gateway := ai.NewOpenAIProvider(aiConfig)

    // --- Agent loop ---
    agentConfig := agent.DefaultConfig()
    agentConfig.ChartDir = chartDir
    if cfg.MaxIterations > 0 {
        agentConfig.MaxIterations = cfg.MaxIterations
    }
    loop, err := agent.NewLoop(
        agentConfig,
        gateway,
        agent.NewSQLGenerator(gateway),
        query.NewExecutor(),
        chart.NewExecutor(chartRenderTimeout),
        messageRepo,
        datasetRepo,
        logger,
    )
    if err != nil {
        log.Fatalf("FATAL: Failed to initialize agent loop: %v", err)
    }

    // --- Services ---
    userService := services.NewUserService(userRepo, cfg.JWTSecretKey)
    chatService, err := services.NewChatService(chatRepo, messageRepo, datasetRepo, loop, gateway, logger)
    if err != nil {
        log.Fatalf("FATAL: Failed to initialize chat service: %v", err)
    }
    datasetService, err := services.NewDatasetService(datasetRepo, ingest.NewIngestor(logger), cfg.DataDir, logger)
    if err != nil {
        log.Fatalf("FATAL: Failed to initialize dataset service: %v", err)
    }

    // --- Handlers ---
    authHandler := handlers.NewAuthHandler(userService)
    chatHandler := handlers.NewChatHandler(chatService)
    datasetHandler := handlers.NewDatasetHandler(datasetService)
    pageHandler := handlers.NewPageHandler(chatService)

    // --- Router Setup ---
    r := mux.NewRouter()
    authMiddleware := middleware.NewJWTMiddleware(cfg.JWTSecretKey)

    r.Use(corsMiddleware)
    r.Use(middleware.RecoverPanic)
    r.Use(middleware.LoggingMiddleware)

    // --- Public Routes ---
    r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("OK"))
    }).Methods("GET")
    r.HandleFunc("/register", authHandler.Register).Methods("POST")
    r.HandleFunc("/login", authHandler.Login).Methods("POST")
    r.HandleFunc("/logout", authHandler.Logout).Methods("GET")

    // --- Protected Routes ---
    protected := r.PathPrefix("/").Subrouter()
    protected.Use(authMiddleware)
    protected.PathPrefix("/charts/").Handler(
        http.StripPrefix("/charts/", http.FileServer(http.Dir(chartDir))))
    protected.HandleFunc("/chats/{id:[0-9]+}/page", pageHandler.ShowChatPage).Methods("GET")

    api := protected.PathPrefix("/api").Subrouter()
    api.HandleFunc("/chats", chatHandler.GetUserChats).Methods("GET")
    api.HandleFunc("/chats", chatHandler.StartChat).Methods("POST")
    api.HandleFunc("/chats/{id:[0-9]+}/messages", chatHandler.GetChatMessages).Methods("GET")
    api.HandleFunc("/chats/{id:[0-9]+}/messages", chatHandler.SendMessage).Methods("POST")
    api.HandleFunc("/chats/{id:[0-9]+}", chatHandler.DeleteChat).Methods("DELETE")
    api.HandleFunc("/files", datasetHandler.List).Methods("GET")
    api.HandleFunc("/files", datasetHandler.Upload).Methods("POST")
    api.HandleFunc("/files/{id:[0-9]+}", datasetHandler.Get).Methods("GET")
    api.HandleFunc("/files/{id:[0-9]+}", datasetHandler.Delete).Methods("DELETE")

    // --- Server Configuration ---
    port := ":" + cfg.ServerPort
    srv := &http.Server{
        Addr:    port,
        Handler: r,
    }

    log.SetFlags(log.LstdFlags | log.Lshortfile)
    log.Printf("Server starting on port %s", port)

    go func() {
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("Server failed: %v", err)
        }
    }()

    // --- Graceful Shutdown ---
    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit
    log.Println("Shutting down server...")

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(ctx); err != nil {
        log.Fatalf("Server forced to shutdown: %v", err)
    }
    log.Println("Server exited")
}

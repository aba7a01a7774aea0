package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"govchat/internal/config"
	"govchat/internal/database"
	"govchat/internal/handlers"
	"govchat/internal/services"
	ws "govchat/internal/websocket"
	"govchat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize the message store
	var store database.Store
	if cfg.Database.URL != "" {
		pg, err := database.NewPostgresStore(context.Background(), cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database: %v", err)
		}
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Fatal("Migration failed: %v", err)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set; messages will not survive a restart")
		store = database.NewMemoryStore()
	}
	defer store.Close()

	// Initialize the chat core
	registry := ws.NewRegistry()
	rooms := ws.NewRoomManager(registry)
	presence := ws.NewPresenceTracker(registry, rooms)
	router := ws.NewEventRouter(registry, rooms, presence, store, cfg.Chat.AdminRoom)

	// Optional cross-instance broadcast bridge
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis: %v", err)
		}
		bridge := ws.NewBridge(redisClient, "chat:rooms")
		rooms.SetBridge(bridge)
		go bridge.Run(bridgeCtx, rooms)
		logger.Info("Broadcast bridge connected to Redis at %s", cfg.Redis.Addr)
	}

	// Initialize services and handlers
	directory := services.NewDirectoryService(store)
	chatHandlers := handlers.NewChatHandlers(store, directory)
	wsHandlers := handlers.NewWebSocketHandlers(registry, rooms, router, cfg)

	// Setup routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/ws", wsHandlers.HandleWebSocket)
	r.Route("/chat", func(r chi.Router) {
		r.Get("/history/{participant}", chatHandlers.GetHistory)
		r.Put("/read/{reader}", chatHandlers.MarkAsRead)
		r.Get("/users", chatHandlers.GetChatUsers)
	})
	r.Route("/websocket", func(r chi.Router) {
		r.Get("/connections", wsHandlers.GetConnections)
		r.Get("/rooms", wsHandlers.GetRooms)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

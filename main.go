package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-backend/internal/handlers"
	"chat-backend/internal/middleware"
	"chat-backend/internal/observability"
	"chat-backend/internal/rabbitmq"
	"chat-backend/internal/registry"
	"chat-backend/internal/store"
	"chat-backend/internal/telemetry"
	"chat-backend/internal/ws"
)

const serviceName = "chat-backend"

func main() {
	st, err := store.Connect()
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer st.Close()

	shutdownTracing, err := observability.SetupTracing(context.Background(), serviceName)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "chat_events"))
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit_log.chat", serviceName, getEnv("ENVIRONMENT", "dev"))

	reg := registry.NewRegistry()
	hub := ws.NewHub(reg)

	typingTimeout := time.Duration(envInt("TYPING_TIMEOUT_SECONDS", 5)) * time.Second
	sweepInterval := time.Duration(envInt("TYPING_SWEEP_INTERVAL_SECONDS", 1)) * time.Second
	typing := ws.NewTypingTracker(hub, typingTimeout)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go typing.Run(sweepCtx, sweepInterval)

	roomHandler := handlers.NewRoomHandler(st, audit)
	userHandler := handlers.NewUserHandler(st, audit)
	messageHandler := handlers.NewMessageHandler(st, hub)
	chatWS := ws.NewChatWebSocketHandler(hub, reg, st, typing)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestID())

	// The rate limit covers the REST surface; websocket, health and metrics
	// endpoints stay exempt.
	api := router.Group("/", middleware.RateLimit(envInt("RATE_LIMIT_PER_MINUTE", 60)))
	api.POST("/rooms", roomHandler.CreateRoom)
	api.GET("/rooms", roomHandler.ListRooms)
	api.GET("/rooms/:room_id", roomHandler.GetRoom)
	api.POST("/users", userHandler.CreateUser)
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:user_id", userHandler.GetUser)
	api.POST("/rooms/:room_id/messages", messageHandler.PostMessage)
	api.GET("/rooms/:room_id/messages", messageHandler.ListMessages)

	router.GET("/ws/:user_id", chatWS.Handle)

	router.GET("/healthz", handlers.Healthz(st))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, getEnv("ENABLE_DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, val, fallback)
		return fallback
	}
	return parsed
}

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"settlement/internal/settlement/adapters"
	"settlement/internal/settlement/application"
	"settlement/internal/settlement/infrastructure"
	"settlement/internal/settlement/ports"
	"settlement/pkg/config"
	"settlement/pkg/db"
	grpcpkg "settlement/pkg/grpc"
	"settlement/pkg/logger"
	"settlement/pkg/middleware"
	"settlement/pkg/rabbitmq"
	"settlement/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("starting settlement service")

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize repositories and run migrations
	cartRepo := adapters.NewPostgresCartRepository(dbConn)
	orderRepo := adapters.NewPostgresOrderRepository(dbConn)
	stockStore := adapters.NewPostgresStockStore(dbConn)
	walletStore := adapters.NewPostgresWalletStore(dbConn)
	couponStore := adapters.NewPostgresCouponStore(dbConn)
	contextStore := adapters.NewPostgresCheckoutContextStore(dbConn)

	for _, m := range []interface{ Migrate() error }{
		cartRepo, orderRepo, stockStore, walletStore, couponStore, contextStore,
	} {
		if err := m.Migrate(); err != nil {
			log.Fatal("failed to migrate database: " + err.Error())
		}
	}

	// Connect to RabbitMQ
	var publisher *adapters.RabbitMQEventPublisher
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
	} else {
		defer rabbitConn.Close()

		publisher, err = adapters.NewRabbitMQEventPublisher(rabbitConn, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
		}
	}

	// External collaborators
	gateway := adapters.NewHTTPPaymentGateway(
		cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout, log)
	addresses := adapters.NewHTTPAddressProvider(cfg.AddressBaseURL, cfg.GatewayTimeout)

	// Initialize use cases. A nil interface, not a typed nil, when the
	// broker is unavailable.
	var eventPublisher ports.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	checkoutUC := application.NewCheckoutUseCase(
		cartRepo, orderRepo, stockStore, walletStore, couponStore, contextStore,
		gateway, addresses, eventPublisher, cfg.Rules, cfg.Currency, log)
	orderUC := application.NewOrderUseCase(orderRepo, stockStore, walletStore, eventPublisher, log)
	couponUC := application.NewCouponUseCase(couponStore, cartRepo, contextStore, cfg.Rules, log)
	walletUC := application.NewWalletUseCase(walletStore, cfg.Rules, log)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	api := router.Group("/api/v1")
	infrastructure.NewCheckoutHandler(checkoutUC, couponUC).RegisterRoutes(api)
	infrastructure.NewOrderHandler(orderUC).RegisterRoutes(api)
	infrastructure.NewWalletHandler(walletUC).RegisterRoutes(api)
	infrastructure.NewAdminHandler(orderUC, couponUC).RegisterRoutes(api)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		if cfg.TLSEnabled {
			tlsConfig, err := tls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
			if err != nil {
				log.Fatal("failed to load TLS config: " + err.Error())
			}
			httpServer.Addr = ":" + cfg.HTTPSPort
			httpServer.TLSConfig = tlsConfig

			log.Info("HTTPS server listening on :" + cfg.HTTPSPort)
			if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTPS server error: " + err.Error())
			}
			return
		}

		log.Info("HTTP server listening on :" + cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	// Start gRPC health server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.HTTPTimeout)),
	)
	healthServer := health.NewServer()
	healthServer.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC: " + err.Error())
	}

	go func() {
		log.Info("gRPC health server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")

	healthServer.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("servers stopped")
}

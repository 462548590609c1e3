package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/triage-ai/ehr-gateway/internal/config"
	"github.com/triage-ai/ehr-gateway/internal/gateway"
	"github.com/triage-ai/ehr-gateway/internal/llm"
	"github.com/triage-ai/ehr-gateway/internal/mcp"
	"github.com/triage-ai/ehr-gateway/internal/server"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ehr-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Logger
	logger := config.MustBuildLogger(config.EnvOrDefault("EHR_GATEWAY_LOG_LEVEL", "info"), "stdout")
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	port := config.EnvOrDefault("EHR_GATEWAY_PORT", "50061")
	workerCmd := strings.Fields(config.EnvOrDefault("EHR_WORKER_CMD", "ehr-worker"))
	callTimeout := config.EnvOrDefaultMillis("EHR_GATEWAY_CALL_TIMEOUT_MS", 10*time.Second)
	readingsLimit := config.EnvOrDefaultInt("EHR_READINGS_LIMIT", 3)
	historyLimit := config.EnvOrDefaultInt("EHR_HISTORY_LIMIT", 5)
	apiKey := os.Getenv("GEMINI_API_KEY")
	model := config.EnvOrDefault("EHR_LLM_MODEL", llm.DefaultModel)
	temperature := config.EnvOrDefaultFloat("EHR_LLM_TEMPERATURE", llm.DefaultTemperature)

	if len(workerCmd) == 0 {
		return fmt.Errorf("EHR_WORKER_CMD is empty")
	}

	logger.Info("starting disclosure gateway",
		zap.String("port", port),
		zap.String("worker_cmd", workerCmd[0]),
		zap.Duration("call_timeout", callTimeout),
		zap.Int("readings_limit", readingsLimit),
		zap.Int("history_limit", historyLimit),
	)

	// Consumer: Gemini if a key is configured, otherwise Ask is disabled
	var consumer llm.Consumer
	if apiKey != "" {
		c, err := llm.NewGenAIConsumer(context.Background(), apiKey, model, temperature, logger)
		if err != nil {
			return err
		}
		consumer = c
		logger.Info("genai consumer configured", zap.String("model", model))
	} else {
		logger.Info("no GEMINI_API_KEY set, Ask is disabled")
	}

	// Each tool call runs in a fresh worker; it inherits our environment.
	dialer := mcp.CommandDialer{Path: workerCmd[0], Args: workerCmd[1:]}
	gw := gateway.New(dialer, consumer, gateway.Config{
		ReadingsLimit: readingsLimit,
		HistoryLimit:  historyLimit,
		CallTimeout:   callTimeout,
	}, logger)

	// gRPC server
	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 10 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
	)

	server.RegisterDisclosureGatewayServer(grpcServer, server.NewDisclosureServer(gw, logger))

	// Health service for orchestrator checks
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for debugging with grpcurl
	reflection.Register(grpcServer)

	// Listen
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", port, err)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
	}()

	logger.Info("disclosure gateway listening", zap.String("addr", lis.Addr().String()))
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc server failed: %w", err)
	}
	return nil
}

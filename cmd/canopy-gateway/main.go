// canopy-gateway serves static app content out of a content-addressed
// record store. It is stateless: every request is answered from the store
// through a short-TTL cache, so any number of gateways can run side by side.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopysites/canopy/pkg/config"
	"github.com/canopysites/canopy/pkg/contentcrypto"
	"github.com/canopysites/canopy/pkg/envelope"
	"github.com/canopysites/canopy/pkg/gateway"
	"github.com/canopysites/canopy/pkg/observability"
	"github.com/canopysites/canopy/pkg/protocol"
	"github.com/canopysites/canopy/pkg/store"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	provider, err := observability.New(ctx, &observability.Config{
		ServiceName:    "canopy-gateway",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Environment == "development",
	})
	if err != nil {
		log.Fatalf("Failed to init observability: %v", err)
	}

	s, err := store.FromConfig(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	logger.Info("store ready", "type", cfg.Store.Type)

	resolver := protocol.NewResolver(s, logger)
	if cfg.PublisherKeysFile != "" {
		keys, err := config.LoadPublisherKeys(cfg.PublisherKeysFile)
		if err != nil {
			log.Fatalf("Failed to load publisher keys: %v", err)
		}
		verifier, err := envelope.NewVerifier(keys)
		if err != nil {
			log.Fatalf("Failed to build verifier: %v", err)
		}
		resolver = resolver.WithVerifier(verifier)
		logger.Info("envelope signatures enforced", "publishers", len(keys))
	}

	var decryptor *contentcrypto.Decryptor
	if cfg.HostKeyPath != "" {
		hostKey, err := contentcrypto.LoadHostKey(cfg.HostKeyPath)
		if err != nil {
			log.Fatalf("Failed to load host key: %v", err)
		}
		decryptor = contentcrypto.NewDecryptor(hostKey)
		logger.Info("content decryption enabled", "host_key", hostKey.PublicKeyID())
	}

	orch := gateway.NewOrchestrator(resolver, decryptor,
		gateway.NewTTLCache(cfg.CacheTTL, nil), logger)
	srv := gateway.NewServer(orch, gateway.ServerConfig{
		OwnerKey:       cfg.OwnerKey,
		DomainRouting:  cfg.DomainRouting,
		PreviewEnabled: cfg.PreviewEnabled,
	}, logger).WithMetrics(provider)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening",
			"port", cfg.Port,
			"domain_routing", cfg.DomainRouting,
			"preview", cfg.PreviewEnabled,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	_ = provider.Shutdown(shutdownCtx)
}

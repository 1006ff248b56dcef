// Command acs-server runs the mock 3DS ACS.
//
// Configuration comes from the environment (or a .env file), see the
// internal/config package for the recognized variables.
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

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/config"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/observability"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/store"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/threeds"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/pkg/acscrypt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if nil != err {
		log.Fatalf("Failed loading configuration, got error %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	st, err := newStore(cfg)
	if nil != err {
		log.Fatalf("Failed opening %s store, got error %v", cfg.StoreBackend, err)
	}
	defer st.Close()

	svc, err := threeds.NewService(st, newSigner(cfg, logger), cfg.PublicBaseURL)
	if nil != err {
		log.Fatalf("Failed assembling service, got error %v", err)
	}

	handler := observability.Middleware{
		Logger:        logger,
		TraceIdHeader: "X-Request-Id",
	}.Wrap(threeds.NewMux(svc))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(
			"starting ACS server",
			"addr", cfg.ListenAddr(),
			"store", cfg.StoreBackend,
			"baseURL", cfg.PublicBaseURL,
		)
		errc <- server.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errc:
		log.Fatalf("Failed serving, got error %v", err)
	case sig := <-sigc:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(ctx)
	if nil != err && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("failed graceful shutdown", "error", err)
	}
}

// newStore opens the transaction store selected by the configuration.
func newStore(cfg *config.Settings) (store.Store[threeds.Transaction], error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case config.StoreRedis:
		return store.NewRedisStore[threeds.Transaction](ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TransactionTTL)
	case config.StoreBolt:
		return store.NewBoltStore[threeds.Transaction](cfg.BoltPath, cfg.TransactionTTL)
	case config.StorePostgres:
		return store.NewPGStore[threeds.Transaction](ctx, cfg.PostgresDSN, cfg.TransactionTTL)
	default:
		return store.NewMemStore[threeds.Transaction](cfg.TransactionTTL)
	}
}

// newSigner loads the RSA key material when configured. A missing or broken
// configuration degrades to the fallback signed content instead of refusing to
// start, the mock stays usable for flows that never verify the signature.
func newSigner(cfg *config.Settings, logger *slog.Logger) *acscrypt.Signer {
	if "" == cfg.CertPath || "" == cfg.KeyPath {
		logger.Warn("no signing key material configured, acsSignedContent uses the fallback form")
		return acscrypt.NewSigner(nil)
	}

	km, err := acscrypt.LoadKeyMaterial(cfg.CertPath, cfg.KeyPath)
	if nil != err {
		logger.Warn(
			"failed loading signing key material, acsSignedContent uses the fallback form",
			"cert", cfg.CertPath,
			"error", err,
		)
		return acscrypt.NewSigner(nil)
	}

	logger.Info("loaded signing key material", "cert", cfg.CertPath)
	return acscrypt.NewSigner(km)
}

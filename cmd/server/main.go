package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-truckdocs/devices"
	"github.com/jrsteele09/go-truckdocs/documents"
	"github.com/jrsteele09/go-truckdocs/documents/sqlitestore"
	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/jrsteele09/go-truckdocs/identity/local"
	"github.com/jrsteele09/go-truckdocs/identity/oidcprovider"
	"github.com/jrsteele09/go-truckdocs/internal/config"
	"github.com/jrsteele09/go-truckdocs/internal/metrics"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/jrsteele09/go-truckdocs/kvstore/kvfake"
	"github.com/jrsteele09/go-truckdocs/kvstore/redisstore"
	"github.com/jrsteele09/go-truckdocs/server"
	"github.com/jrsteele09/go-truckdocs/timeout"
	"github.com/jrsteele09/go-truckdocs/upload"
	fakeuserrepo "github.com/jrsteele09/go-truckdocs/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []server.Option

	store, closeStore, err := openStateStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, server.WithHealthCheck("state", pinger.Ping))
	}

	docStore, err := sqlitestore.Open(c.GetDocumentsDBPath())
	if err != nil {
		return err
	}
	defer docStore.Close()
	checks = append(checks, server.WithHealthCheck("documents", docStore.Ping))

	connector, err := newConnector(ctx, c)
	if err != nil {
		return err
	}

	m := metrics.New()
	registry := devices.NewRegistry(ctx, connector, store, sessionConfig(c),
		devices.WithMonitorOptions(timeout.WithRecorder(m)),
		devices.WithDeviceCount(m.SetActiveDevices),
	)
	defer registry.Close()

	uploader := upload.NewClient(c.GetUploadAPIKey(),
		upload.WithEndpoint(c.GetUploadEndpoint()),
		upload.WithMaxBytes(c.GetUploadMaxBytes()),
		upload.WithHTTPClient(&http.Client{Timeout: c.GetUploadTimeout()}),
	)
	docs := documents.NewService(docStore, uploader, documents.WithMaxFileBytes(c.GetUploadMaxBytes()))

	srv := &http.Server{Addr: c.GetPort(), Handler: server.New(c, registry, docs, m, checks...)}
	go listenAndServe(srv)
	waitForStopSignal()
	returnError = shutdown(srv)
	return returnError
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func sessionConfig(c config.SessionConfig) timeout.Config {
	return timeout.Config{
		Timeout:          c.GetSessionTimeout(),
		WarningTime:      c.GetSessionWarningTime(),
		CheckInterval:    c.GetSessionCheckInterval(),
		ActivityThrottle: c.GetActivityThrottle(),
		RestoreActivity:  c.GetRestoreActivityOnStart(),
	}
}

// openStateStore uses Redis when an address is configured and process memory otherwise.
func openStateStore(ctx context.Context, c config.StorageConfig) (kvstore.Store, func(), error) {
	if c.GetRedisAddr() == "" {
		log.Warn().Msg("REDIS_ADDR not set, session state is kept in memory")
		return kvfake.NewFakeStore(), func() {}, nil
	}
	client, err := redisstore.Connect(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisMaxRetries())
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Err(err).Msg("failed to close redis client")
		}
	}
	return redisstore.New(client, c.GetStateTTL()), closeClient, nil
}

func newConnector(ctx context.Context, c config.IdentityConfig) (identity.Connector, error) {
	if c.GetIdentityProvider() == "oidc" {
		return oidcprovider.New(ctx, c.GetOIDCIssuer(), c.GetOIDCClientID(), c.GetOIDCClientSecret())
	}

	key := []byte(c.GetIdentitySigningKey())
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("[newConnector] signing key: %w", err)
		}
		log.Warn().Msg("IDENTITY_SIGNING_KEY not set, ID tokens will not survive a restart")
	}
	dir, err := local.NewDirectory(fakeuserrepo.NewFakeUserRepo(), key, local.WithEnumerationProtection())
	if err != nil {
		return nil, err
	}

	seed, err := local.LoadSeedFile(c.GetIdentitySeedFile())
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("file", c.GetIdentitySeedFile()).Msg("no seed users file, nobody can sign in")
		return dir, nil
	}
	if err != nil {
		return nil, err
	}
	if err := dir.Seed(seed); err != nil {
		return nil, err
	}
	log.Info().Int("users", len(seed)).Msg("local identity directory seeded")
	return dir, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Err(err).Msg("server.ListenAndServe")
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

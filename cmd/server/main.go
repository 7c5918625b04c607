// Package main initializes and starts the KidCoin relay server,
// setting up configuration, logging, the optional activity database,
// the credential service, and the websocket hub.
package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/config"
	"github.com/atinyakov/kidcoin/internal/db"
	"github.com/atinyakov/kidcoin/internal/logger"
	"github.com/atinyakov/kidcoin/internal/models"
	"github.com/atinyakov/kidcoin/internal/repository"
	"github.com/atinyakov/kidcoin/internal/server/handler/http"
	"github.com/atinyakov/kidcoin/internal/server/hub"
	"github.com/atinyakov/kidcoin/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Credentials are worthless without the secret, so a missing one
	// only costs restarts their validity.
	secret := options.TokenSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			zapLogger.Fatal("cannot generate token secret", zap.Error(err))
		}
		secret = hex.EncodeToString(buf)
		zapLogger.Warn("no token secret configured, using an ephemeral one")
	}
	tokenService := service.NewTokenService([]byte(secret))

	ctx := context.Background()
	relayHub := hub.New(zapLogger)

	// Optional activity retention.
	var activityHandler *http.ActivityHandler
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}

		activityRepo := repository.NewPostgresActivityRepository(postgresDB)
		activityService := service.NewActivityService(activityRepo, zapLogger)
		activityService.StartPruner(ctx,
			time.Hour,       // interval
			30*24*time.Hour, // retention: 30 days
		)

		relayHub.Tap(models.ChannelActivity, func(name string, data json.RawMessage) {
			if name != models.EventLog {
				return
			}
			var ev models.ActivityEvent
			if err := json.Unmarshal(data, &ev); err != nil || ev.Text == "" {
				return
			}
			activityService.Record(ctx, ev.Text)
		})

		activityHandler = &http.ActivityHandler{Service: activityService}
	}

	go relayHub.Run(ctx)

	tokenHandler := &http.TokenHandler{
		Service:        tokenService,
		AllowedOrigins: options.Origins(),
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(
		tokenHandler,
		activityHandler,
		http.ServeWS(relayHub, tokenService, zapLogger),
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting relay server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start relay server", zap.Error(err))
	}
}

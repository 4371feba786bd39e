package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-presence/internal/notify"
	"call-presence/internal/platform/config"
	"call-presence/internal/platform/logger"
	"call-presence/internal/platform/metrics"
	"call-presence/internal/presence"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	retention := config.GetEnvDuration("SESSION_RETENTION", presence.DefaultRetention)
	sweepInterval := config.GetEnvDuration("SWEEP_INTERVAL", presence.DefaultSweepInterval)
	messengerURL := config.GetEnv("MESSENGER_URL", "")
	messengerToken := config.GetEnv("MESSENGER_TOKEN", "")
	adminRecipient := config.GetEnv("ADMIN_RECIPIENT", "")
	fanoutURL := config.GetEnv("FANOUT_URL", "")
	fanoutToken := config.GetEnv("FANOUT_TOKEN", "")
	channelPrefix := config.GetEnv("FANOUT_CHANNEL_PREFIX", presence.DefaultChannelPrefix)
	amqpURL := config.GetEnv("AMQP_URL", "")

	log := logger.New(logLevel, logFormat)

	var messenger notify.Messenger
	if messengerURL != "" {
		messenger = notify.NewTextGateway(messengerURL, messengerToken)
	} else {
		log.Warn("MESSENGER_URL not set, completion reports disabled")
	}

	var notifier notify.Notifier
	var busFanout *notify.BusFanout
	switch {
	case amqpURL != "":
		bus, err := notify.NewBusFanout(amqpURL)
		if err != nil {
			log.Error("bus fan-out connect failed", "error", err)
			os.Exit(1)
		}
		busFanout = bus
		notifier = bus
		log.Info("connect fan-out via message bus")
	case fanoutURL != "":
		notifier = notify.NewChannelFanout(fanoutURL, fanoutToken)
	default:
		log.Warn("FANOUT_URL not set, connect notifications disabled")
	}

	registry := presence.NewRegistry()
	met := metrics.New()
	svc := presence.NewService(registry, notifier, messenger, log, met, adminRecipient, channelPrefix)
	h := presence.NewHandler(svc, log, met)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	sweeper := presence.NewSweeper(registry, sweepInterval, retention, log, met)
	go sweeper.Run(sweeperCtx)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(registry.ActiveSessionCount()) }).ServeHTTP(w, r)
	})
	r.Get("/connected", h.ListConnected)
	r.Route("/rooms/{room}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Route("/participants/{identity}", func(r chi.Router) {
			r.Post("/connect", h.Connect)
			r.Post("/disconnect", h.Disconnect)
		})
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"session_retention", retention.String(),
		"sweep_interval", sweepInterval.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	stopSweeper()
	svc.Flush()
	if busFanout != nil {
		busFanout.Close()
	}

	log.Info("server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/keepmind9/slackline/internal/config"
	"github.com/keepmind9/slackline/internal/driver"
	"github.com/keepmind9/slackline/internal/logger"
	"github.com/keepmind9/slackline/internal/slack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveConfigFile string
	serveEcho       bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook endpoint",
		Long: `Run the HTTP endpoint receiving Slack webhook events (Events API,
slash commands, interactive actions) and drive them through the webhook
driver. With --echo every inbound message is answered with its own text,
which exercises the full reply path.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(serveConfigFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}
			initLogging(cfg)

			drv := slack.NewDriver(slack.Config{
				Token:   cfg.Slack.Token,
				BaseURL: cfg.Slack.BaseURL,
			}, nil)

			if !drv.IsConfigured() {
				logger.Warn("slack-token-not-configured-outbound-calls-will-fail")
			}

			router := chi.NewRouter()
			router.Use(middleware.Recoverer)
			router.Post(cfg.Server.Path, webhookHandler(drv))

			server := &http.Server{Addr: cfg.Server.Addr, Handler: router}

			go func() {
				logger.WithFields(logrus.Fields{
					"addr": cfg.Server.Addr,
					"path": cfg.Server.Path,
				}).Info("webhook-server-listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("webhook-server-error: %v", err)
				}
			}()

			waitForSignal()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("webhook-server-shutdown-error: %v", err)
			}
			logger.Info("webhook-server-stopped")
		},
	}
)

// webhookHandler drives one request through the host-framework contract:
// verify, build, match, read messages, optionally reply.
func webhookHandler(drv *slack.Driver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		if challenge, ok := drv.VerifyRequest(r); ok {
			logger.WithField("request_id", requestID).Info("url-verification-handshake-answered")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(challenge))
			return
		}

		if err := drv.BuildPayload(r); err != nil {
			logger.WithField("request_id", requestID).Errorf("build-payload-failed: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if !drv.MatchesRequest() {
			logger.WithField("request_id", requestID).Debug("request-not-recognized-by-driver")
			w.WriteHeader(http.StatusOK)
			return
		}

		for _, message := range drv.GetMessages() {
			logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"sender":     message.Sender,
				"recipient":  message.Recipient,
				"from_bot":   message.FromBot,
				"text":       message.Text,
			}).Info("webhook-message-received")

			if !serveEcho || message.FromBot {
				continue
			}

			if body, replied := echoReply(r.Context(), drv, message); replied && body != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(body.StatusCode)
				w.Write(body.Body)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

// echoReply answers a message with its own text. Token-mode payloads go out
// through the API; JSON-mode payloads come back as the response body.
func echoReply(ctx context.Context, drv *slack.Driver, message driver.IncomingMessage) (*driver.Response, bool) {
	payload, err := drv.BuildServicePayload(message.Text, &message, nil)
	if err != nil {
		logger.Errorf("build-service-payload-failed: %v", err)
		return nil, false
	}

	response, err := drv.SendPayload(ctx, payload)
	if err != nil {
		logger.Errorf("send-payload-failed: %v", err)
		return nil, false
	}

	// Out-of-band token replies need no response body
	if drv.Mode() != slack.ResultJSON {
		return nil, true
	}
	return response, true
}

func initLogging(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logging.Level,
		File:         cfg.Logging.File,
		MaxSize:      cfg.Logging.MaxSize,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAge:       cfg.Logging.MaxAge,
		Compress:     cfg.Logging.Compress,
		EnableStdout: cfg.Logging.EnableStdout,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("shutdown-signal-received")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "config.yaml", "Configuration file path")
	serveCmd.Flags().BoolVar(&serveEcho, "echo", false, "Echo every inbound message back to its sender")
}

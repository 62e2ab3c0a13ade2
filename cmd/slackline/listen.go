package main

import (
	"context"
	"log"
	"time"

	"github.com/keepmind9/slackline/internal/config"
	"github.com/keepmind9/slackline/internal/logger"
	"github.com/keepmind9/slackline/internal/rtm"
	"github.com/keepmind9/slackline/internal/slack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listenConfigFile string
	listenEcho       bool

	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Listen on the realtime API",
		Long: `Open a realtime websocket connection and drive inbound frames through
the realtime driver. A periodic heartbeat checks the connection on the
configured interval; an interval of 0 disables it.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(listenConfigFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}
			initLogging(cfg)

			heartbeat, err := cfg.Heartbeat()
			if err != nil {
				log.Fatalf("Invalid heartbeat interval: %v", err)
			}

			api := slack.NewClient(cfg.Slack.Token, cfg.Slack.BaseURL)
			client := rtm.NewClient(cfg.Slack.Token, api)
			drv := slack.NewRTMDriver(slack.Config{
				Token:   cfg.Slack.Token,
				BaseURL: cfg.Slack.BaseURL,
			}, client)

			if !drv.IsConfigured() {
				log.Fatal("slack token is required for the realtime transport")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := client.Connect(ctx); err != nil {
				log.Fatalf("Failed to connect: %v", err)
			}
			defer client.Close()

			if heartbeat > 0 {
				go runHeartbeat(ctx, client, heartbeat)
			}

			go func() {
				waitForSignal()
				cancel()
			}()

			if err := drv.Run(ctx, handleFrame); err != nil && err != context.Canceled {
				logger.Errorf("rtm-loop-error: %v", err)
			}
			logger.Info("rtm-listener-stopped")
		},
	}
)

// handleFrame is the per-frame callback: it logs platform events and
// messages, and echoes messages back when --echo is set.
func handleFrame(drv *slack.RTMDriver) {
	if event, ok := drv.HasMatchingEvent(); ok {
		logger.WithField("event", event.Name).Info("rtm-platform-event-received")
		return
	}

	for _, message := range drv.GetMessages() {
		if message.Sender == "" && message.Text == "" {
			continue
		}

		logger.WithFields(logrus.Fields{
			"sender":    message.Sender,
			"recipient": message.Recipient,
			"from_bot":  message.FromBot,
			"text":      message.Text,
		}).Info("rtm-message-received")

		if !listenEcho || message.FromBot {
			continue
		}

		drv.Types(&message)

		payload, err := drv.BuildServicePayload(message.Text, &message, nil)
		if err != nil {
			logger.Errorf("build-service-payload-failed: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := drv.SendPayload(ctx, payload); err != nil {
			logger.Errorf("send-payload-failed: %v", err)
		}
		cancel()
	}
}

// runHeartbeat invokes the connection check on the configured interval. It
// only detects a dead connection; reconnecting is an operator concern.
func runHeartbeat(ctx context.Context, client *rtm.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.CheckConnection(); err != nil {
				logger.Errorf("rtm-heartbeat-failed: %v", err)
			}
		}
	}
}

func init() {
	listenCmd.Flags().StringVarP(&listenConfigFile, "config", "c", "config.yaml", "Configuration file path")
	listenCmd.Flags().BoolVar(&listenEcho, "echo", false, "Echo every inbound message back to its channel")
}

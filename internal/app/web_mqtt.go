package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pose_bridge/internal/config"
)

// ErrReadOnly is returned for commands sent to a dashboard that only mirrors MQTT.
var ErrReadOnly = errors.New("dashboard is read-only: commands need the tracker's own web server")

type readOnlySubmitter struct{}

func (readOnlySubmitter) Submit(Command) <-chan error {
	reply := make(chan error, 1)
	reply <- ErrReadOnly
	return reply
}

// frameHandler decodes mirrored snapshots into the web server.
func frameHandler(web *WebServer) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var s Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: frame unmarshal error: %v", err)
			return
		}
		web.Observe(s)
	}
}

// RunWeb serves the dashboard from frames a running tracker mirrors to
// MQTT, so it can live on another machine than the game.
func RunWeb() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is not configured")
	}
	if cfg.WebServerPort == 0 {
		return fmt.Errorf("WEB_SERVER_PORT is not configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(mqttClientID(cfg.MQTTClientID + "-web"))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	web := NewWebServer(cfg.WebServerPort, readOnlySubmitter{})

	token := client.Subscribe(cfg.TopicFrame, 0, frameHandler(web))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicFrame)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return web.ListenAndServe(ctx)
}

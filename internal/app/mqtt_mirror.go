package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/pose_bridge/internal/config"
)

// mqttPublisher is the part of mqtt.Client the mirror uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// StatusMessage is published on the status topic whenever the gesture
// status or the device selection changes.
type StatusMessage struct {
	Time          time.Time `json:"time"`
	Status        string    `json:"status"`
	PrimaryRole   string    `json:"primary_role"`
	SecondaryRole string    `json:"secondary_role"`
}

// MQTTMirror republishes loop snapshots to MQTT for remote displays.
// Observe never waits on the broker.
type MQTTMirror struct {
	client      mqttPublisher
	topicFrame  string
	topicStatus string
	interval    time.Duration

	last       time.Time
	lastStatus StatusMessage
}

// mqttClientID appends a random suffix so several bridges can share a broker.
func mqttClientID(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// ConnectMQTTMirror connects to the configured broker.
func ConnectMQTTMirror(cfg *config.Config) (*MQTTMirror, mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(mqttClientID(cfg.MQTTClientID)).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Printf("mirror: connected to MQTT broker at %s", cfg.MQTTBroker)

	interval := time.Duration(cfg.MirrorIntervalMS) * time.Millisecond
	return newMQTTMirror(client, cfg.TopicFrame, cfg.TopicStatus, interval), client, nil
}

func newMQTTMirror(client mqttPublisher, topicFrame, topicStatus string, interval time.Duration) *MQTTMirror {
	return &MQTTMirror{
		client:      client,
		topicFrame:  topicFrame,
		topicStatus: topicStatus,
		interval:    interval,
	}
}

// Observe is a loop Observer.
func (m *MQTTMirror) Observe(s Snapshot) {
	status := StatusMessage{
		Time:          s.Time,
		Status:        s.Status,
		PrimaryRole:   s.PrimaryRole,
		SecondaryRole: s.SecondaryRole,
	}
	if m.topicStatus != "" && !sameStatus(status, m.lastStatus) {
		m.lastStatus = status
		if payload, err := json.Marshal(status); err != nil {
			log.Printf("mirror: status marshal error: %v", err)
		} else {
			m.client.Publish(m.topicStatus, 0, true, payload)
		}
	}

	if !m.last.IsZero() && s.Time.Sub(m.last) < m.interval {
		return
	}
	m.last = s.Time

	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("mirror: frame marshal error: %v", err)
		return
	}
	m.client.Publish(m.topicFrame, 0, false, payload)
}

func sameStatus(a, b StatusMessage) bool {
	return a.Status == b.Status && a.PrimaryRole == b.PrimaryRole && a.SecondaryRole == b.SecondaryRole
}

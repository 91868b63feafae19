// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry exports the lock's activity: MQTT events, Prometheus
// metrics and a WebSocket/HTTP status surface.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

// publishTimeout bounds how long an observer call may wait on the broker.
const publishTimeout = 2 * time.Second

// Topics names the MQTT topics events are published to.
type Topics struct {
	State    string
	Decision string
	Prompt   string
}

// StateEvent is published on every transition.
type StateEvent struct {
	From lock.State `json:"from"`
	To   lock.State `json:"to"`
	At   time.Time  `json:"at"`
}

// PromptEvent mirrors what the display shows. Progress is -1 outside a
// capture.
type PromptEvent struct {
	Lines    []string `json:"lines"`
	Progress float64  `json:"progress"`
}

// Publisher is the part of mqtt.Client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes transitions, decisions and display updates as JSON. It is
// both a lock.Observer and a lock.Display.
type MQTT struct {
	client Publisher
	topics Topics

	mu    sync.Mutex
	lines []string
	step  int
}

// ConnectMQTT connects to broker and returns the client.
func ConnectMQTT(broker, clientID, willTopic string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	if willTopic != "" {
		opts.SetWill(willTopic, `{"online":false}`, 0, true)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to broker at %s as %s", broker, clientID)
	return client, nil
}

// NewMQTT publishes through client.
func NewMQTT(client Publisher, topics Topics) *MQTT {
	return &MQTT{client: client, topics: topics}
}

func (m *MQTT) OnTransition(from, to lock.State) {
	m.publish(m.topics.State, true, StateEvent{From: from, To: to, At: time.Now().UTC()})
}

func (m *MQTT) OnDecision(d lock.Decision) {
	m.publish(m.topics.Decision, false, d)
}

func (m *MQTT) ShowPrompt(lines []string) {
	m.mu.Lock()
	m.lines = append([]string(nil), lines...)
	m.step = 0
	m.mu.Unlock()
	m.publish(m.topics.Prompt, true, PromptEvent{Lines: lines, Progress: -1})
}

// ShowProgress publishes in steps of ten percent.
func (m *MQTT) ShowProgress(fraction float64) {
	step := int(math.Floor(fraction * 10))
	m.mu.Lock()
	if step <= m.step {
		m.mu.Unlock()
		return
	}
	m.step = step
	lines := m.lines
	m.mu.Unlock()
	m.publish(m.topics.Prompt, true, PromptEvent{Lines: lines, Progress: fraction})
}

// ShowResult is covered by OnDecision.
func (m *MQTT) ShowResult(lock.Decision) {}

func (m *MQTT) publish(topic string, retained bool, v interface{}) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt: marshal for %s: %v", topic, err)
		return
	}
	token := m.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("mqtt: publish to %s timed out", topic)
		return
	}
	if token.Error() != nil {
		log.Printf("mqtt: publish to %s: %v", topic, token.Error())
	}
}

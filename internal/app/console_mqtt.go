package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_lock/internal/config"
	"github.com/relabs-tech/gesture_lock/internal/lock"
	"github.com/relabs-tech/gesture_lock/internal/telemetry"
)

// RunConsoleMQTT prints every state change, prompt and decision the lock
// publishes until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	if cfg.MQTTBroker == "" {
		return errors.New("console: MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := []struct {
		topic  string
		format func([]byte) (string, error)
	}{
		{cfg.TopicState, formatState},
		{cfg.TopicPrompt, formatPrompt},
		{cfg.TopicDecision, formatDecision},
	}
	for _, sub := range subs {
		if sub.topic == "" {
			continue
		}
		format := sub.format
		token := client.Subscribe(sub.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
				return
			}
			fmt.Println(line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", sub.topic)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatState(payload []byte) (string, error) {
	var ev telemetry.StateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	return fmt.Sprintf("[STATE] %s  %s -> %s", ev.At.Format("15:04:05.000"), ev.From, ev.To), nil
}

func formatPrompt(payload []byte) (string, error) {
	var ev telemetry.PromptEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	text := strings.Join(ev.Lines, " / ")
	if ev.Progress < 0 {
		return fmt.Sprintf("[PROMPT] %s", text), nil
	}
	return fmt.Sprintf("[PROMPT] %s  %3.0f%%", text, ev.Progress*100), nil
}

func formatDecision(payload []byte) (string, error) {
	var d lock.Decision
	if err := json.Unmarshal(payload, &d); err != nil {
		return "", err
	}
	verdict := "DENIED"
	if d.Unlocked {
		verdict = "UNLOCKED"
	}
	line := fmt.Sprintf("[DECIDE] attempt=%d %-8s x=%9.1f y=%9.1f z=%9.1f limit=%.1f",
		d.Attempt, verdict, d.Thresholds.X, d.Thresholds.Y, d.Thresholds.Z, d.Limit)
	if d.Error != "" {
		line += " error=" + d.Error
	}
	return line, nil
}

package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartAuditConsumer connects to RabbitMQ, declares the auth.audit queue
// (durable), and starts consuming messages. Each event is appended to
// logs/auth.log in a single-line, human-friendly format. The function runs
// a reconnect loop with exponential backoff; processing errors are logged
// and the offending message is rejected without requeue so the consumer
// keeps operating.
func StartAuditConsumer(log zerolog.Logger) {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(log, conn); err != nil {
			log.Warn().Err(err).Msg("consume loop ended; reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(log zerolog.Logger, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}

	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Warn().Err(err).Msg("handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "auth.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | realm=%s | account=%s", ev.At, ev.Event, ev.Realm, ev.Account)
	if ev.Detail != "" {
		line += " | detail=" + ev.Detail
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

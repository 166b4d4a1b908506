// Package queue contains the background consumer that listens to the
// ping.created queue and appends one audit line per ping to logs/pings.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/mission-control/internal/logging"
)

// StartPingConsumer connects to RabbitMQ, declares the ping.created queue
// (durable) and consumes it until ctx is cancelled.  Broker failures are
// logged and retried with exponential backoff capped at 30s; a message that
// cannot be handled is rejected without requeue so the loop keeps going.
func StartPingConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logging.Warn().Err(err).Dur("retry_in", backoff).Msg("ping-consumer: failed to dial broker")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Msg("ping-consumer: consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logging.Warn().Err(err).Msg("ping-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(PingCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(PingCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(logDir, d.Body); err != nil {
				logging.Error().Err(err).Msg("ping-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one ping.created payload and appends it to
// <logDir>/pings.log.
func HandleMessage(logDir string, body []byte) error {
	var ev PingCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "pings.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev PingCreatedEvent) string {
	kind, parent := "root", "-"
	if ev.ParentPingID != nil {
		kind, parent = "response", strconv.FormatUint(*ev.ParentPingID, 10)
	}
	return fmt.Sprintf("[%s] Ping %s | ping_id=%d | user_id=%d | parent=%s | lat=%s | lng=%s\n",
		ev.CreatedAt, kind, ev.PingID, ev.UserID, parent, ev.Latitude, ev.Longitude)
}

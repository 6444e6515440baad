package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Deliverer is the outbound mail transport the consumer hands events to.
type Deliverer interface {
    SendPasswordReset(ctx context.Context, to, rawToken string) error
}

// Consumer drains the reset queue and delivers each request.
type Consumer struct {
    URL     string
    Mail    Deliverer
    Log     *slog.Logger
    Timeout time.Duration
}

// Run connects to RabbitMQ, declares the reset queue (durable) and consumes
// messages until ctx is cancelled.  Broker failures trigger a reconnect
// with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    url := c.URL
    if url == "" {
        url = DefaultURL
    }
    log := c.Log
    if log == nil {
        log = slog.Default()
    }

    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("queue.consumer.dial.fail", "err", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("queue.consumer.loop.ended", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        log.Warn("queue.consumer.qos.fail", "err", err)
    }

    if _, err := ch.QueueDeclare(PasswordResetQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(PasswordResetQueue, "", false, false, false, false, nil)
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
            if err := c.handleMessage(ctx, d.Body); err != nil {
                log.Error("queue.consumer.handle.fail", "err", err)
                _ = d.Nack(false, false) // drop, no requeue
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
    var ev PasswordResetRequestedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Email == "" || ev.Token == "" {
        return errors.New("event missing email or token")
    }
    timeout := c.Timeout
    if timeout <= 0 {
        timeout = 30 * time.Second
    }
    sendCtx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    return c.Mail.SendPasswordReset(sendCtx, ev.Email, ev.Token)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

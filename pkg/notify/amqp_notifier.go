package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultExchange = "bloodbridge.notify"
	smsRoutingKey   = "sms"
)

// AMQPNotifier publishes notification messages to a RabbitMQ topic
// exchange. A delivery worker outside this service turns them into SMS.
type AMQPNotifier struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

type smsMessage struct {
	Phone   string    `json:"phone"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type broadcastMessage struct {
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// NewAMQPNotifier connects to the broker and declares the exchange.
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = defaultExchange
	}
	n := &AMQPNotifier{url: url, exchange: exchange}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	n.conn = conn
	n.ch = ch
	return nil
}

// SendSMS publishes a single-recipient text message.
func (n *AMQPNotifier) SendSMS(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(smsMessage{
		Phone:   phone,
		Message: message,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}
	return n.publish(ctx, smsRoutingKey, body)
}

// Broadcast publishes to a topic routing key.
func (n *AMQPNotifier) Broadcast(ctx context.Context, topic, message string) error {
	body, err := json.Marshal(broadcastMessage{
		Topic:   topic,
		Message: message,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	return n.publish(ctx, "broadcast."+topic, body)
}

func (n *AMQPNotifier) publish(ctx context.Context, routingKey string, body []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil || n.ch.IsClosed() {
		if err := n.connect(); err != nil {
			return err
		}
	}
	return n.ch.PublishWithContext(ctx, n.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

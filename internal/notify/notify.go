package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindPasswordReset Kind = "password_reset"
	KindOrderStatus   Kind = "order_status"
	KindOrderReceipt  Kind = "order_receipt"
)

// Message is a one-way notification for a single recipient. Data values
// are flat strings so they map directly onto redis stream fields.
type Message struct {
	Kind      Kind
	Recipient string
	Data      map[string]string
}

type Notifier interface {
	Deliver(ctx context.Context, msg Message) error
}

func PasswordReset(loginID, token string, expiresAt time.Time) Message {
	return Message{
		Kind:      KindPasswordReset,
		Recipient: loginID,
		Data: map[string]string{
			"token":     token,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		},
	}
}

func OrderStatus(customerID, orderID, status string) Message {
	return Message{
		Kind:      KindOrderStatus,
		Recipient: customerID,
		Data: map[string]string{
			"orderId": orderID,
			"status":  status,
		},
	}
}

func OrderReceipt(customerID, orderID, receipt string) Message {
	return Message{
		Kind:      KindOrderReceipt,
		Recipient: customerID,
		Data: map[string]string{
			"orderId": orderID,
			"receipt": receipt,
		},
	}
}

// StreamNotifier appends messages to a redis stream for the worker.
type StreamNotifier struct {
	client *redis.Client
	stream string
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) Deliver(ctx context.Context, msg Message) error {
	values := make(map[string]any, len(msg.Data)+2)
	for k, v := range msg.Data {
		values[k] = v
	}
	values["type"] = string(msg.Kind)
	values["recipient"] = msg.Recipient

	if _, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: values,
	}).Result(); err != nil {
		return fmt.Errorf("xadd %s: %w", n.stream, err)
	}
	return nil
}

var ErrMalformedMessage = errors.New("malformed notification")

// FromStream rebuilds a Message from the fields StreamNotifier wrote.
func FromStream(values map[string]any) (Message, error) {
	msg := Message{Data: make(map[string]string, len(values))}
	for k, raw := range values {
		v, ok := raw.(string)
		if !ok {
			return Message{}, fmt.Errorf("%w: field %s is %T", ErrMalformedMessage, k, raw)
		}
		switch k {
		case "type":
			msg.Kind = Kind(v)
		case "recipient":
			msg.Recipient = v
		default:
			msg.Data[k] = v
		}
	}
	if msg.Kind == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return msg, nil
}

// LogNotifier writes messages to the log. Used when no worker is running.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Deliver(_ context.Context, msg Message) error {
	event := n.log.Info().
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.Recipient)
	for k, v := range msg.Data {
		event = event.Str(k, v)
	}
	event.Msg("notification")
	return nil
}

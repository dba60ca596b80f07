package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusdelivery/internal/notify"
)

// ReceiptStore is satisfied by *storage.ObjectStore.
type ReceiptStore interface {
	PutReceipt(ctx context.Context, orderID, receipt string) error
}

type Processor struct {
	logger   zerolog.Logger
	receipts ReceiptStore
	console  io.Writer
}

// NewProcessor builds a processor. Reset tokens are printed to console,
// which stands in for mail delivery.
func NewProcessor(logger zerolog.Logger, receipts ReceiptStore, console io.Writer) *Processor {
	return &Processor{
		logger:   logger,
		receipts: receipts,
		console:  console,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	payload, err := notify.FromStream(msg.Values)
	if err != nil {
		// Redelivery cannot fix a malformed entry.
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed notification")
		return nil
	}

	switch payload.Kind {
	case notify.KindPasswordReset:
		return p.handlePasswordReset(payload)
	case notify.KindOrderStatus:
		return p.handleOrderStatus(payload)
	case notify.KindOrderReceipt:
		return p.handleOrderReceipt(ctx, payload)
	default:
		p.logger.Warn().Str("type", string(payload.Kind)).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handlePasswordReset(msg notify.Message) error {
	rule := strings.Repeat("=", 60)
	_, err := fmt.Fprintf(p.console,
		"%s\nPASSWORD RESET TOKEN for student %s\nToken: %s\nExpires at: %s\nUse at: POST /api/v1/auth/reset-password\n%s\n",
		rule, msg.Recipient, msg.Data["token"], msg.Data["expiresAt"], rule,
	)
	if err != nil {
		return fmt.Errorf("print reset token: %w", err)
	}
	p.logger.Info().Str("recipient", msg.Recipient).Msg("password reset token delivered")
	return nil
}

func (p *Processor) handleOrderStatus(msg notify.Message) error {
	p.logger.Info().
		Str("recipient", msg.Recipient).
		Str("order_id", msg.Data["orderId"]).
		Str("status", msg.Data["status"]).
		Msg("order status delivered")
	return nil
}

func (p *Processor) handleOrderReceipt(ctx context.Context, msg notify.Message) error {
	orderID := msg.Data["orderId"]
	if orderID == "" {
		p.logger.Warn().Msg("receipt without order id")
		return nil
	}
	if p.receipts == nil {
		p.logger.Info().Str("order_id", orderID).Msg("receipt storage disabled")
		return nil
	}
	if err := p.receipts.PutReceipt(ctx, orderID, msg.Data["receipt"]); err != nil {
		return fmt.Errorf("store receipt %s: %w", orderID, err)
	}
	p.logger.Info().Str("order_id", orderID).Msg("receipt stored")
	return nil
}

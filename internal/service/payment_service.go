package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/metrics"
)

// IntentCreator creates a card payment intent and returns its client secret.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (string, error)
}

// StripeIntents is the Stripe implementation of IntentCreator.
type StripeIntents struct {
	api *client.API
}

// NewStripeIntents builds a client for secretKey. A nil backends uses the
// default Stripe endpoints; tests pass backends pointed at a fake server.
func NewStripeIntents(secretKey string, backends *stripe.Backends) *StripeIntents {
	return &StripeIntents{api: client.New(secretKey, backends)}
}

func (s *StripeIntents) CreateIntent(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

// PaymentIntents turns an order price into a processor payment intent.
// Nothing is persisted locally.
type PaymentIntents struct {
	creator  IntentCreator
	currency string
}

func NewPaymentIntents(creator IntentCreator, currency string) *PaymentIntents {
	return &PaymentIntents{creator: creator, currency: currency}
}

// MinorUnits converts a two-decimal price to cents, rounding half away from zero.
func MinorUnits(price float64) (int64, error) {
	amount := decimal.NewFromFloat(price).Shift(2).Round(0)
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return amount.IntPart(), nil
}

// Create returns the client secret for a charge of price in the configured currency.
func (p *PaymentIntents) Create(ctx context.Context, price float64) (string, error) {
	amount, err := MinorUnits(price)
	if err != nil {
		return "", err
	}
	secret, err := p.creator.CreateIntent(ctx, amount, p.currency)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("failed").Inc()
		logger.FromCtx(ctx).Error("payment intent failed", zap.Int64("amount", amount), zap.Error(err))
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	metrics.PaymentIntents.WithLabelValues("created").Inc()
	return secret, nil
}

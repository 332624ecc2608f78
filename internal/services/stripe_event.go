package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Stripe amounts are integers in the currency's smallest unit. These
// currencies have no unit below the major one.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// fromMinorUnits converts a Stripe amount into a major-unit decimal.
func fromMinorUnits(minor int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(minor)
	}
	return decimal.New(minor, -2)
}

func decodePaymentIntent(evt stripe.Event) (*stripe.PaymentIntent, error) {
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, errors.New("event has no data object")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

// SignStripePayload builds a Stripe-Signature header value. It is used by
// tests and local tooling to produce deliveries the webhook accepts.
func SignStripePayload(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProviderStripe            = "stripe"
	stripePaymentSucceeded    = "payment_intent.succeeded"
	stripeCustomerMetadataKey = "customer_id"
)

// DeadLetterSink parks events that failed processing.
type DeadLetterSink interface {
	Send(ctx context.Context, records []models.FailedEvent) error
}

// TopUpService credits customer wallets from confirmed payment captures.
type TopUpService struct {
	DB            *gorm.DB
	Logger        *zap.Logger
	Notifier      Notifier
	DeadLetter    DeadLetterSink
	WebhookSecret string
	Tolerance     time.Duration
	// Currency is the wallet currency; captures in any other currency are refused.
	Currency string
}

func NewTopUpService(db *gorm.DB, logger *zap.Logger, notifier Notifier, deadLetter DeadLetterSink, webhookSecret string, tolerance time.Duration, currency string) *TopUpService {
	return &TopUpService{
		DB:            db,
		Logger:        logger,
		Notifier:      notifier,
		DeadLetter:    deadLetter,
		WebhookSecret: webhookSecret,
		Tolerance:     tolerance,
		Currency:      strings.ToLower(currency),
	}
}

type TopUpEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	CustomerID      string
	Amount          decimal.Decimal
	Payload         []byte
}

type TopUpResult struct {
	EventID   string `json:"event_id"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	Ignored   bool   `json:"ignored"`
}

// HandleStripeWebhook verifies and applies one Stripe delivery. Events other
// than a succeeded payment intent are acknowledged without effect.
func (s *TopUpService) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*TopUpResult, error) {
	if s.WebhookSecret == "" {
		return nil, common.E(common.Unexpected, "stripe webhook secret is not configured", nil)
	}
	tolerance := s.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, s.WebhookSecret, tolerance); err != nil {
		s.Logger.Warn("rejected stripe webhook", zap.Error(err))
		return nil, common.E(common.Invalid, "Invalid webhook signature", err)
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, common.InvalidBodyErr(err)
	}
	if string(evt.Type) != stripePaymentSucceeded {
		s.Logger.Info("ignoring stripe event", zap.String("event_id", evt.ID), zap.String("type", string(evt.Type)))
		return &TopUpResult{EventID: evt.ID, Ignored: true}, nil
	}

	pi, err := decodePaymentIntent(evt)
	if err != nil {
		return nil, common.InvalidBodyErr(err)
	}
	minor := pi.AmountReceived
	if minor == 0 {
		minor = pi.Amount
	}
	currency := strings.ToLower(string(pi.Currency))
	topUp := TopUpEvent{
		Provider:        ProviderStripe,
		ProviderEventID: evt.ID,
		EventType:       string(evt.Type),
		CustomerID:      pi.Metadata[stripeCustomerMetadataKey],
		Amount:          fromMinorUnits(minor, currency),
		Payload:         payload,
	}
	if s.Currency != "" && currency != s.Currency {
		err := common.E(common.Invalid, "Unsupported currency "+strings.ToUpper(currency), ErrUnsupportedCurrency)
		s.Logger.Warn("refused stripe top-up",
			zap.String("event_id", evt.ID),
			zap.String("currency", currency),
			zap.String("expected", s.Currency))
		s.park(ctx, topUp, err)
		return nil, err
	}
	return s.Apply(ctx, topUp)
}

// Apply credits the wallet and appends the TOP_UP history row in one unit of
// work keyed by (provider, provider event id). Redelivered events are
// reported as duplicates and change nothing.
func (s *TopUpService) Apply(ctx context.Context, evt TopUpEvent) (*TopUpResult, error) {
	v := common.ValidationErrs()
	if evt.Provider == "" {
		v.Add("provider", "is required")
	}
	if evt.ProviderEventID == "" {
		v.Add("provider_event_id", "is required")
	}
	if evt.CustomerID == "" {
		v.Add("customer_id", "is required")
	}
	if !evt.Amount.IsPositive() || !common.IsMoney(evt.Amount) {
		v.Add("amount", "must be a positive amount with at most two decimal places")
	}
	if err := v.Err(); err != nil {
		err = common.ValidationFailedErr(err)
		s.park(ctx, evt, err)
		return nil, err
	}

	result := &TopUpResult{EventID: evt.ProviderEventID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := webhookSeen(tx, evt.Provider, evt.ProviderEventID)
		if err != nil {
			return err
		}
		if seen {
			result.Duplicate = true
			return nil
		}

		record := models.WebhookEvent{
			Provider:        evt.Provider,
			ProviderEventID: evt.ProviderEventID,
			EventType:       evt.EventType,
			CustomerID:      evt.CustomerID,
			Amount:          evt.Amount,
			Status:          models.WebhookProcessed,
		}
		if len(evt.Payload) > 0 && json.Valid(evt.Payload) {
			record.Payload = datatypes.JSON(evt.Payload)
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Customer{}).
			Where("id = ?", evt.CustomerID).
			Update("wallet_balance", gorm.Expr("wallet_balance + ?", evt.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.NotFoundErr("Customer")
		}

		return tx.Create(&models.PaymentHistory{
			CustomerID:  evt.CustomerID,
			Amount:      evt.Amount,
			PaymentType: models.PaymentTopUp,
			PaymentDate: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		// A concurrent delivery of the same event may have won the unique index.
		if seen, serr := webhookSeen(s.DB.WithContext(ctx), evt.Provider, evt.ProviderEventID); serr == nil && seen {
			s.Logger.Info("duplicate top-up event", zap.String("provider", evt.Provider), zap.String("event_id", evt.ProviderEventID))
			return &TopUpResult{EventID: evt.ProviderEventID, Duplicate: true}, nil
		}
		s.Logger.Error("top-up failed",
			zap.String("provider", evt.Provider),
			zap.String("event_id", evt.ProviderEventID),
			zap.String("customer_id", evt.CustomerID),
			zap.Error(err))
		s.park(ctx, evt, err)
		return nil, err
	}

	if result.Duplicate {
		s.Logger.Info("duplicate top-up event", zap.String("provider", evt.Provider), zap.String("event_id", evt.ProviderEventID))
		return result, nil
	}

	result.Applied = true
	s.Logger.Info("wallet topped up",
		zap.String("provider", evt.Provider),
		zap.String("event_id", evt.ProviderEventID),
		zap.String("customer_id", evt.CustomerID),
		zap.String("amount", evt.Amount.StringFixed(2)))
	notify(ctx, s.Notifier, s.Logger, NotificationDTO{
		CustomerID:  evt.CustomerID,
		Title:       "Wallet topped up",
		Description: "Your wallet has been credited with " + evt.Amount.StringFixed(2) + ".",
		Priority:    models.PriorityLow,
	})
	return result, nil
}

func webhookSeen(db *gorm.DB, provider, eventID string) (bool, error) {
	var count int64
	err := db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Count(&count).Error
	return count > 0, err
}

// park hands a failed event to the dead-letter store, if one is configured.
func (s *TopUpService) park(ctx context.Context, evt TopUpEvent, cause error) {
	if s.DeadLetter == nil {
		return
	}
	record := models.FailedEvent{
		Key:      evt.Provider + ":" + evt.ProviderEventID,
		Source:   evt.Provider,
		Reason:   cause.Error(),
		Payload:  evt.Payload,
		FailedAt: time.Now().UTC(),
	}
	if err := s.DeadLetter.Send(ctx, []models.FailedEvent{record}); err != nil {
		s.Logger.Error("failed to dead-letter top-up event", zap.String("key", record.Key), zap.Error(err))
	}
}

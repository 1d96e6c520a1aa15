package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iliyamo/script-review-portal/internal/config"
)

const eventCheckoutCompleted = "checkout.session.completed"

// StripeCheckout is the PaymentProvider backed by Stripe Checkout.
type StripeCheckout struct {
	api *client.API
	cfg config.StripeConfig
}

// NewStripeCheckout returns nil when no secret key is configured.
func NewStripeCheckout(cfg config.StripeConfig) *StripeCheckout {
	if !cfg.Enabled() {
		return nil
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeCheckout{api: api, cfg: cfg}
}

func (s *StripeCheckout) CreateSession(ctx context.Context, req CheckoutRequest, amount int64) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.cfg.SuccessURL),
		CancelURL:     stripe.String(s.cfg.CancelURL),
		CustomerEmail: stripe.String(req.AuthorEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.cfg.Currency),
				UnitAmount: stripe.Int64(amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(fmt.Sprintf("Script review (%s): %s", req.TierName, req.Title)),
					Description: stripe.String(nonEmpty(req.TierDescription, "Screenplay review")),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	for k, v := range req.Metadata() {
		params.AddMetadata(k, truncate(v, 500))
	}
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.ID, sess.URL, nil
}

func (s *StripeCheckout) CompletedSession(payload []byte, signature string) (string, bool, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if string(ev.Type) != eventCheckoutCompleted {
		return "", false, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return "", false, fmt.Errorf("decode checkout session: %w", err)
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		return "", false, nil
	}
	return cs.ID, true, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

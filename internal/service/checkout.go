package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// CheckoutRequest is the script submission sent by the public site.
type CheckoutRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	AuthorName      string `json:"authorName" validate:"required,max=255"`
	AuthorEmail     string `json:"authorEmail" validate:"required,email"`
	AuthorPhone     string `json:"authorPhone" validate:"max=64"`
	Amount          int64  `json:"amount" validate:"gte=0"`
	TierName        string `json:"tierName" validate:"max=64"`
	TierID          string `json:"tierId" validate:"max=64"`
	TierDescription string `json:"tierDescription" validate:"max=500"`
	FileName        string `json:"fileName" validate:"required,max=255"`
	FileURL         string `json:"fileUrl" validate:"required"`
	FileKey         string `json:"fileKey"`
	PageCount       int    `json:"pageCount" validate:"gte=0"`
}

// Metadata is the reconciliation data attached to a hosted checkout.
func (r CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		"title":           r.Title,
		"authorName":      r.AuthorName,
		"authorEmail":     r.AuthorEmail,
		"authorPhone":     r.AuthorPhone,
		"tierName":        r.TierName,
		"tierId":          r.TierID,
		"tierDescription": r.TierDescription,
		"fileName":        r.FileName,
		"fileKey":         r.FileKey,
	}
}

// PaymentProvider is the hosted checkout.
type PaymentProvider interface {
	// CreateSession opens a checkout for amount cents and returns its id and
	// the URL to redirect the buyer to.
	CreateSession(ctx context.Context, req CheckoutRequest, amount int64) (id, url string, err error)
	// CompletedSession verifies a webhook delivery. ok is false for events
	// other than a completed checkout.
	CompletedSession(payload []byte, signature string) (sessionID string, ok bool, err error)
}

// ScriptCreator persists new submissions.
type ScriptCreator interface {
	Create(ctx context.Context, s *model.Script) error
	MarkPaid(ctx context.Context, sessionID string) (*model.Script, bool, error)
}

// Checkout turns submissions into scripts. Free submissions are created
// paid; paid tiers wait for the provider's webhook.
type Checkout struct {
	Scripts  ScriptCreator
	Provider PaymentProvider
	Notifier *Notifier
	Log      *zap.Logger
}

// CheckoutResult tells the site where to go next.
type CheckoutResult struct {
	ScriptID    string `json:"scriptId"`
	Amount      int64  `json:"amount"`
	Free        bool   `json:"free"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

// Start validates the amount against the tier catalogue and creates the
// script, plus a hosted checkout for paid tiers.
func (c *Checkout) Start(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	amount := ResolveAmount(c.Log, req.Amount, req.TierID, req.TierName)
	tierLabel := "unknown"
	if t, ok := LookupTier(req.TierID); ok {
		tierLabel = t.ID
	} else if t, ok := LookupTier(req.TierName); ok {
		tierLabel = t.ID
	}
	metrics.CheckoutTotal.WithLabelValues(tierLabel).Inc()

	s := &model.Script{
		Title:           strings.TrimSpace(req.Title),
		AuthorName:      strings.TrimSpace(req.AuthorName),
		AuthorEmail:     strings.ToLower(strings.TrimSpace(req.AuthorEmail)),
		AuthorPhone:     strings.TrimSpace(req.AuthorPhone),
		FileName:        req.FileName,
		FileURL:         req.FileURL,
		FileKey:         req.FileKey,
		PageCount:       req.PageCount,
		AmountCents:     amount,
		TierID:          req.TierID,
		TierName:        req.TierName,
		TierDescription: req.TierDescription,
		Status:          model.ScriptPending,
	}

	if amount == 0 {
		s.PaymentStatus = model.PaymentPaid
		if err := c.Scripts.Create(ctx, s); err != nil {
			return nil, err
		}
		c.Notifier.Notify(ctx, scriptEvent(model.NotifyScriptSubmitted, "New free submission", s))
		return &CheckoutResult{ScriptID: s.ID, Amount: 0, Free: true}, nil
	}

	if c.Provider == nil {
		return nil, ErrPaymentsDisabled
	}
	id, url, err := c.Provider.CreateSession(ctx, req, amount)
	if err != nil {
		return nil, err
	}
	s.PaymentStatus = model.PaymentPending
	s.CheckoutSessionID = &id
	if err := c.Scripts.Create(ctx, s); err != nil {
		return nil, err
	}
	return &CheckoutResult{ScriptID: s.ID, Amount: amount, CheckoutURL: url, SessionID: id}, nil
}

// Webhook applies a provider delivery. Repeated deliveries are no-ops.
func (c *Checkout) Webhook(ctx context.Context, payload []byte, signature string) error {
	if c.Provider == nil {
		return ErrPaymentsDisabled
	}
	sessionID, ok, err := c.Provider.CompletedSession(payload, signature)
	if err != nil || !ok {
		return err
	}
	s, changed, err := c.Scripts.MarkPaid(ctx, sessionID)
	if err != nil {
		return err
	}
	if changed {
		c.Log.Info("checkout: script paid", zap.String("script_id", s.ID), zap.Int64("amount", s.AmountCents))
		c.Notifier.Notify(ctx, scriptEvent(model.NotifyScriptSubmitted, "New paid submission", s))
	}
	return nil
}

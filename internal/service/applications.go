package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/utils"
)

// ApplicationStore persists contractor applications.
type ApplicationStore interface {
	Create(ctx context.Context, a *model.ContractorApplication) error
	GetByID(ctx context.Context, id string) (*model.ContractorApplication, error)
	Approve(ctx context.Context, id string, j *model.Judge) error
	Reject(ctx context.Context, id string) error
}

// Applications handles reviewer sign-ups.
type Applications struct {
	Store      ApplicationStore
	BcryptCost int
	Notifier   *Notifier
	Mail       Mailer
	Log        *zap.Logger
}

// Apply records a new application and notifies the admin.
func (a *Applications) Apply(ctx context.Context, app *model.ContractorApplication) error {
	if err := a.Store.Create(ctx, app); err != nil {
		return err
	}
	a.Notifier.Notify(ctx, queueEvent(model.NotifyApplication, "New reviewer application", app.Name+" <"+app.Email+">"))
	return nil
}

// Approval is returned once; the password is not stored in clear.
type Approval struct {
	Judge    *model.Judge `json:"judge"`
	Password string       `json:"password"`
}

// Approve creates an approved judge with a generated password.
func (a *Applications) Approve(ctx context.Context, id string) (*Approval, error) {
	app, err := a.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	password, err := utils.GeneratePassword(14)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, a.BcryptCost)
	if err != nil {
		return nil, err
	}
	j := &model.Judge{Name: app.Name, Email: app.Email, PasswordHash: hash, Status: model.JudgeApproved}
	if err := a.Store.Approve(ctx, id, j); err != nil {
		return nil, err
	}
	if a.Mail != nil {
		subject, body := welcomeMail(j)
		if err := a.Mail.Send(ctx, []string{j.Email}, subject, body); err != nil {
			a.Log.Warn("applications: welcome mail failed", zap.String("judge_id", j.ID), zap.Error(err))
		}
	}
	return &Approval{Judge: j, Password: password}, nil
}

// Reject closes a pending application.
func (a *Applications) Reject(ctx context.Context, id string) error {
	return a.Store.Reject(ctx, id)
}

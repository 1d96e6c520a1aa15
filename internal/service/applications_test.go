package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/utils"
)

type memApplications struct {
	apps   map[string]*model.ContractorApplication
	judges []*model.Judge
}

func (m *memApplications) Create(_ context.Context, a *model.ContractorApplication) error {
	a.ID, a.Status = "app-1", model.ApplicationPending
	m.apps[a.ID] = a
	return nil
}

func (m *memApplications) GetByID(_ context.Context, id string) (*model.ContractorApplication, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *memApplications) Approve(_ context.Context, id string, j *model.Judge) error {
	a := m.apps[id]
	if a.Status != model.ApplicationPending {
		return repository.ErrConflict
	}
	a.Status = model.ApplicationApproved
	j.ID = "judge-1"
	m.judges = append(m.judges, j)
	return nil
}

func (m *memApplications) Reject(_ context.Context, id string) error {
	m.apps[id].Status = model.ApplicationRejected
	return nil
}

func TestApplicationLifecycle(t *testing.T) {
	store := &memApplications{apps: map[string]*model.ContractorApplication{}}
	notes, mailer := &memNotifications{}, &memMailer{}
	a := &Applications{
		Store: store, BcryptCost: bcrypt.MinCost, Mail: mailer, Log: zap.NewNop(),
		Notifier: &Notifier{Store: notes, Log: zap.NewNop()},
	}
	ctx := context.Background()

	app := &model.ContractorApplication{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, a.Apply(ctx, app))
	assert.Equal(t, []string{model.NotifyApplication}, notes.kinds())

	res, err := a.Approve(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, res.Password, 14)
	assert.Equal(t, model.JudgeApproved, res.Judge.Status)
	assert.True(t, utils.VerifyPassword(res.Judge.PasswordHash, res.Password))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, mailer.sent[0].to)

	_, err = a.Approve(ctx, app.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

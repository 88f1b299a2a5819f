package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"github.com/nikolayk812/payhook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/goleak"
)

type webhookEventRepositorySuite struct {
	suite.Suite

	repo      port.WebhookEventRepository
	pool      *pgxpool.Pool
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestWebhookEventRepositorySuite(t *testing.T) {
	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t)

	suite.Run(t, new(webhookEventRepositorySuite))
}

// before all tests in the suite
func (suite *webhookEventRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.NoError(err)

	suite.repo, err = repository.NewWebhookEvent(suite.pool)
	suite.NoError(err)
}

// after all tests in the suite
func (suite *webhookEventRepositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *webhookEventRepositorySuite) TestInsertEvent() {
	event := fakeWebhookEvent()

	tests := []struct {
		name         string
		event        domain.WebhookEvent
		wantInserted bool
		wantError    string
	}{
		{
			name:         "new event: inserted",
			event:        event,
			wantInserted: true,
		},
		{
			name:         "same event again: not inserted",
			event:        event,
			wantInserted: false,
		},
		{
			name:         "another event: inserted",
			event:        fakeWebhookEvent(),
			wantInserted: true,
		},
		{
			name:      "empty event id: error",
			event:     domain.WebhookEvent{},
			wantError: "event ID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			inserted, err := suite.repo.InsertEvent(ctx, tt.event)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantInserted, inserted)

			actual, err := suite.repo.GetEvent(ctx, tt.event.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.event.ID, actual.ID)
			assert.Equal(t, tt.event.Type, actual.Type)
			assert.Equal(t, tt.event.SessionID, actual.SessionID)
			assert.Equal(t, tt.event.PaymentID, actual.PaymentID)
			assert.False(t, actual.ReceivedAt.IsZero())
		})
	}
}

func (suite *webhookEventRepositorySuite) TestGetEvent() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.repo.GetEvent(ctx, gofakeit.UUID())
	require.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = suite.repo.GetEvent(ctx, "")
	require.EqualError(t, err, "eventID is empty")
}

func fakeWebhookEvent() domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:        "evt_" + gofakeit.LetterN(24),
		Type:      domain.EventTypeCheckoutCompleted,
		SessionID: "cs_test_" + gofakeit.LetterN(24),
		PaymentID: "pi_" + gofakeit.LetterN(24),
	}
}

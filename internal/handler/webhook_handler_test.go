package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/handler"
	"github.com/nikolayk812/payhook/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconcileService struct {
	result service.ReconcileResult
	err    error

	gotPayload   []byte
	gotSignature string
}

func (f *fakeReconcileService) Reconcile(_ context.Context, payload []byte, signatureHeader string) (service.ReconcileResult, error) {
	f.gotPayload = payload
	f.gotSignature = signatureHeader

	if f.err != nil {
		return service.ReconcileResult{}, f.err
	}
	return f.result, nil
}

func newWebhookRouter(reconciler *fakeReconcileService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/v1/webhooks/stripe", handler.NewWebhook(reconciler, nil).HandleStripe)

	return router
}

func TestHandleStripe(t *testing.T) {
	tests := []struct {
		name        string
		result      service.ReconcileResult
		err         error
		wantStatus  int
		wantOutcome string
	}{
		{
			name:        "transitioned: 200",
			result:      service.ReconcileResult{Outcome: service.OutcomeTransitioned, OrderID: uuid.New()},
			wantStatus:  http.StatusOK,
			wantOutcome: "transitioned",
		},
		{
			name:        "duplicate delivery: 200",
			result:      service.ReconcileResult{Outcome: service.OutcomeDuplicate},
			wantStatus:  http.StatusOK,
			wantOutcome: "duplicate",
		},
		{
			name:        "unmatched session: 200",
			result:      service.ReconcileResult{Outcome: service.OutcomeUnmatched},
			wantStatus:  http.StatusOK,
			wantOutcome: "unmatched",
		},
		{
			name:        "irrelevant event kind: 200",
			result:      service.ReconcileResult{Outcome: service.OutcomeIgnored},
			wantStatus:  http.StatusOK,
			wantOutcome: "ignored",
		},
		{
			name:       "invalid signature: 400",
			err:        domain.ErrInvalidSignature,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "infrastructure failure: 500, provider will retry",
			err:        errors.New("orders.UpdateStatusIfPending: connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := &fakeReconcileService{result: tt.result, err: tt.err}
			router := newWebhookRouter(reconciler)

			payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			// raw bytes and header reach the reconciler untouched
			assert.Equal(t, payload, reconciler.gotPayload)
			assert.Equal(t, "t=1,v1=abc", reconciler.gotSignature)

			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["received"])
			assert.Equal(t, tt.wantOutcome, resp["outcome"])
		})
	}
}

package payment

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"lacquer/models"
)

// AuthorizationTTL is how long a PSP authorization stays usable. After this
// the PSP may garbage-collect the intent, so a confirm against it must force
// a recreate instead.
const AuthorizationTTL = 20 * time.Minute

// TaskTypeAuthorizationCancel is the asynq task that cancels a PSP intent
// server-side once its TTL has passed and it was never confirmed.
const TaskTypeAuthorizationCancel = "authorization:cancel"

// CancelTaskPayload is the payload for TaskTypeAuthorizationCancel tasks.
type CancelTaskPayload struct {
	IntentID string `json:"intentId"`
}

// NewCancelTask builds the delayed cleanup task for an authorization.
func NewCancelTask(intentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CancelTaskPayload{IntentID: intentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuthorizationCancel, payload), nil
}

// AuthorizationManager creates, expires, refreshes, and invalidates PSP
// authorizations. It holds no per-session state; the live authorization is
// owned by the checkout session and passed in.
type AuthorizationManager struct {
	PSP      PSPClient
	Currency string
	Logger   *zap.Logger

	// Tasks, when set, schedules server-side cancellation of stale intents.
	Tasks *asynq.Client

	// Now is injectable for TTL tests; defaults to time.Now.
	Now func() time.Time

	// One PSP create at a time: a single submit must never race itself into
	// duplicate authorizations.
	mu sync.Mutex
}

// Create asks the PSP for a new authorization over the given amount.
func (m *AuthorizationManager) Create(ctx context.Context, amountCents int64, methodTypes []string) (*models.PaymentAuthorization, error) {
	if amountCents <= 0 {
		return nil, NewValidationError("authorization amount must be positive")
	}
	if len(methodTypes) == 0 {
		return nil, NewValidationError("no payment method types for authorization")
	}

	intent, err := m.PSP.CreateIntent(ctx, amountCents, m.Currency, methodTypes)
	if err != nil {
		return nil, Classify(err)
	}

	auth := &models.PaymentAuthorization{
		ID:          intent.ID,
		Handle:      intent.ClientSecret,
		AmountCents: amountCents,
		MethodTypes: methodTypes,
		Status:      models.AuthorizationPending,
		CreatedAt:   m.now(),
	}

	m.scheduleCancel(auth.ID)
	return auth, nil
}

// IsExpired reports whether auth has outlived the authorization TTL.
func (m *AuthorizationManager) IsExpired(auth *models.PaymentAuthorization) bool {
	if auth == nil {
		return true
	}
	return m.now().Sub(auth.CreatedAt) > AuthorizationTTL
}

// EnsureFresh returns auth unchanged only when it is live, unexpired, and
// still matches the amount and method types. Anything else gets a new
// authorization from the PSP. The manager lock keeps concurrent callers from
// creating duplicates for the same submit.
func (m *AuthorizationManager) EnsureFresh(ctx context.Context, auth *models.PaymentAuthorization, amountCents int64, methodTypes []string) (*models.PaymentAuthorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if auth != nil && auth.Status == models.AuthorizationPending &&
		!m.IsExpired(auth) &&
		auth.AmountCents == amountCents &&
		sameMethodTypes(auth.MethodTypes, methodTypes) {
		return auth, nil
	}

	if auth != nil {
		m.invalidateLocked(ctx, auth)
	}
	return m.Create(ctx, amountCents, methodTypes)
}

// Invalidate clears a stale authorization after a method switch or any
// amount-affecting change. The PSP-side cancel is best effort; a stale
// intent that survives will be swept by the delayed cancel task anyway.
func (m *AuthorizationManager) Invalidate(ctx context.Context, auth *models.PaymentAuthorization) {
	if auth == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked(ctx, auth)
}

func (m *AuthorizationManager) invalidateLocked(ctx context.Context, auth *models.PaymentAuthorization) {
	auth.Status = models.AuthorizationExpired
	if err := m.PSP.CancelIntent(ctx, auth.ID); err != nil {
		m.Logger.Warn("failed to cancel stale authorization",
			zap.String("intentId", auth.ID), zap.Error(err))
	}
}

func (m *AuthorizationManager) scheduleCancel(intentID string) {
	if m.Tasks == nil {
		return
	}
	task, err := NewCancelTask(intentID)
	if err != nil {
		m.Logger.Warn("failed to build cancel task", zap.Error(err))
		return
	}
	if _, err := m.Tasks.Enqueue(task, asynq.ProcessIn(AuthorizationTTL+time.Minute)); err != nil {
		m.Logger.Warn("failed to enqueue cancel task",
			zap.String("intentId", intentID), zap.Error(err))
	}
}

func (m *AuthorizationManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func sameMethodTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lacquer/models"
	"lacquer/services/payment"
)

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.CheckoutSession
	deleted  []string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*models.CheckoutSession)}
}

func (m *memSessionStore) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, errors.New("checkout session not found or expired")
	}
	copied := *session
	return &copied, nil
}

func (m *memSessionStore) Save(ctx context.Context, session *models.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.SessionID] = &copied
	return nil
}

func (m *memSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type stubPSP struct {
	mu      sync.Mutex
	creates int
}

func (s *stubPSP) CreateIntent(ctx context.Context, amountCents int64, currency string, methodTypes []string) (payment.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return payment.Intent{
		ID:           fmt.Sprintf("pi_%d", s.creates),
		ClientSecret: fmt.Sprintf("pi_%d_secret", s.creates),
		Status:       "requires_confirmation",
	}, nil
}

func (s *stubPSP) ConfirmIntent(ctx context.Context, id string, p payment.ConfirmParams) (payment.Intent, error) {
	return payment.Intent{ID: id, Status: "succeeded"}, nil
}

func (s *stubPSP) CancelIntent(ctx context.Context, id string) error { return nil }

// scriptedAdapter plays back confirmation results in order; the last one
// repeats. A zero-result script panics on confirm.
type scriptedAdapter struct {
	mu          sync.Mutex
	rail        models.PaymentMethod
	validateErr error
	script      []models.ConfirmationResult
	calls       int

	// started/release let a test hold a confirm open mid-flight.
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (a *scriptedAdapter) Method() models.PaymentMethod { return a.rail }

func (a *scriptedAdapter) ValidateDetails(models.BillingDetails) error { return a.validateErr }

func (a *scriptedAdapter) Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult {
	if a.started != nil {
		a.startOnce.Do(func() { close(a.started) })
	}
	if a.release != nil {
		<-a.release
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.script) == 0 {
		panic("no scripted result")
	}
	res := a.script[0]
	if len(a.script) > 1 {
		a.script = a.script[1:]
	}
	return res
}

type recordingFinalizer struct {
	mu     sync.Mutex
	calls  int
	result models.ConfirmationResult
	err    error
}

func (f *recordingFinalizer) Finalize(ctx context.Context, session *models.CheckoutSession, result models.ConfirmationResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.result = result
	if f.err != nil {
		return "", f.err
	}
	return "appt_1", nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func standardSession() *models.CheckoutSession {
	return &models.CheckoutSession{
		SessionID: "sess_1",
		UserID:    "user_1",
		ArtistID:  "artist_1",
		ServiceID: "svc_gel",
		Date:      "2026-09-04",
		StartTime: "10:30",
		Pricing: models.PricingInput{
			ServicePrice:   dec("100"),
			TaxRatePercent: dec("7.75"),
			Method:         models.MethodCard,
		},
		Quote: models.PricingResult{
			Kind:        models.ResultStandard,
			Subtotal:    dec("100"),
			Tax:         dec("7.75"),
			Deposit:     dec("107.75"),
			Fee:         dec("3.53"),
			Total:       dec("111.28"),
			Remaining:   decimal.Zero,
			FullPayment: true,
		},
		CreatedAt: time.Now(),
	}
}

type orchestratorFixture struct {
	orch      *ConfirmationOrchestrator
	store     *memSessionStore
	psp       *stubPSP
	adapter   *scriptedAdapter
	finalizer *recordingFinalizer
}

func newFixture(t *testing.T, adapter *scriptedAdapter) *orchestratorFixture {
	t.Helper()
	store := newMemSessionStore()
	psp := &stubPSP{}
	finalizer := &recordingFinalizer{}
	orch := &ConfirmationOrchestrator{
		Sessions: store,
		Auth: &payment.AuthorizationManager{
			PSP:      psp,
			Currency: "usd",
			Logger:   zap.NewNop(),
		},
		Finalizer: finalizer,
		Logger:    zap.NewNop(),
		AdapterFor: func(models.PaymentMethod) (payment.Adapter, error) {
			return adapter, nil
		},
	}
	if err := store.Save(context.Background(), standardSession()); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return &orchestratorFixture{orch: orch, store: store, psp: psp, adapter: adapter, finalizer: finalizer}
}

func TestSubmitHappyPath(t *testing.T) {
	adapter := &scriptedAdapter{
		rail:   models.MethodCard,
		script: []models.ConfirmationResult{{Success: true, ProviderPaymentID: "pi_1"}},
	}
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateSucceeded || !outcome.Result.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.AppointmentID != "appt_1" {
		t.Fatalf("expected finalized appointment, got %q", outcome.AppointmentID)
	}
	if fix.psp.creates != 1 {
		t.Fatalf("expected one authorization create, got %d", fix.psp.creates)
	}
	if len(fix.store.deleted) != 1 {
		t.Fatalf("expected session cleared after success")
	}
}

func TestSubmitValidationFailsBeforeNetwork(t *testing.T) {
	adapter := &scriptedAdapter{
		rail:        models.MethodKlarna,
		validateErr: payment.NewValidationError("klarna pre-approval is still pending"),
		script:      []models.ConfirmationResult{{Success: true}},
	}
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateFailed || outcome.Result.ErrorClass != models.ErrClassValidation {
		t.Fatalf("expected validation failure, got %+v", outcome)
	}
	if fix.psp.creates != 0 {
		t.Fatalf("validation failure must block the authorization call, got %d creates", fix.psp.creates)
	}
	if fix.adapter.calls != 0 {
		t.Fatalf("validation failure must block confirm, got %d calls", fix.adapter.calls)
	}
}

func TestSubmitRetriesExactlyOnceOnExpiredAuthorization(t *testing.T) {
	adapter := &scriptedAdapter{
		rail: models.MethodCard,
		script: []models.ConfirmationResult{
			{ErrorClass: models.ErrClassAuthExpired, Message: "No such payment_intent"},
			{Success: true, ProviderPaymentID: "pi_2"},
		},
	}
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateSucceeded {
		t.Fatalf("expected retry to succeed, got %+v", outcome)
	}
	if fix.adapter.calls != 2 {
		t.Fatalf("expected exactly two confirm attempts, got %d", fix.adapter.calls)
	}
	// The retry must run against a recreated authorization.
	if fix.psp.creates != 2 {
		t.Fatalf("expected the authorization recreated for the retry, got %d creates", fix.psp.creates)
	}
}

func TestSubmitNeverRetriesTwice(t *testing.T) {
	adapter := &scriptedAdapter{
		rail: models.MethodCard,
		script: []models.ConfirmationResult{
			{ErrorClass: models.ErrClassAuthExpired},
			{ErrorClass: models.ErrClassAuthExpired},
			{Success: true}, // must never be reached
		},
	}
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateFailed {
		t.Fatalf("second expiry must fail, got %+v", outcome)
	}
	if fix.adapter.calls != 2 {
		t.Fatalf("expected exactly two confirm attempts, got %d", fix.adapter.calls)
	}
	if !strings.Contains(outcome.Result.Message, "expired") {
		t.Fatalf("expected session-expired message, got %q", outcome.Result.Message)
	}
}

func TestSubmitTerminalErrorIsNotRetried(t *testing.T) {
	adapter := &scriptedAdapter{
		rail: models.MethodCard,
		script: []models.ConfirmationResult{
			{ErrorClass: models.ErrClassTerminal, Message: "Your card was declined."},
		},
	}
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateFailed || outcome.Result.ErrorClass != models.ErrClassTerminal {
		t.Fatalf("expected terminal failure, got %+v", outcome)
	}
	if fix.adapter.calls != 1 {
		t.Fatalf("terminal errors must not retry, got %d calls", fix.adapter.calls)
	}
	if outcome.Result.Message != "Your card was declined." {
		t.Fatalf("PSP reason must surface verbatim, got %q", outcome.Result.Message)
	}
}

func TestSubmitRejectsReentrantCalls(t *testing.T) {
	adapter := &scriptedAdapter{
		rail:    models.MethodCard,
		script:  []models.ConfirmationResult{{Success: true, ProviderPaymentID: "pi_1"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	fix := newFixture(t, adapter)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := fix.orch.Submit(ctx, "sess_1", models.BillingDetails{})
		done <- err
	}()

	// Second submit lands while the first confirm is still in flight.
	<-adapter.started
	_, err := fix.orch.Submit(ctx, "sess_1", models.BillingDetails{})
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(adapter.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if fix.adapter.calls != 1 {
		t.Fatalf("two rapid submits must produce one confirm, got %d", fix.adapter.calls)
	}
}

func TestSubmitAllowsNewAttemptAfterFailure(t *testing.T) {
	adapter := &scriptedAdapter{
		rail: models.MethodCard,
		script: []models.ConfirmationResult{
			{ErrorClass: models.ErrClassNetwork, Message: "timeout"},
			{Success: true, ProviderPaymentID: "pi_1"},
		},
	}
	fix := newFixture(t, adapter)
	ctx := context.Background()

	first, err := fix.orch.Submit(ctx, "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.State != StateFailed || first.Result.ErrorClass != models.ErrClassNetwork {
		t.Fatalf("expected network failure, got %+v", first)
	}

	// The in-flight flag must be cleared: a fresh submit goes through.
	second, err := fix.orch.Submit(ctx, "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.State != StateSucceeded {
		t.Fatalf("expected retry-by-user to succeed, got %+v", second)
	}
}

func TestSubmitReclassifiesPanicAsNetworkError(t *testing.T) {
	adapter := &scriptedAdapter{rail: models.MethodCard} // empty script panics
	fix := newFixture(t, adapter)

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit must not propagate the panic: %v", err)
	}
	if outcome.State != StateFailed || outcome.Result.ErrorClass != models.ErrClassNetwork {
		t.Fatalf("expected panic reclassified as network failure, got %+v", outcome)
	}
}

func TestSubmitCherrySkipsAuthorization(t *testing.T) {
	fix := newFixture(t, &scriptedAdapter{rail: models.MethodCherry})
	fix.orch.AdapterFor = func(models.PaymentMethod) (payment.Adapter, error) {
		return &payment.CherryAdapter{Logger: zap.NewNop()}, nil
	}

	session := standardSession()
	session.Pricing.Method = models.MethodCherry
	session.Quote.FullPayment = true
	if err := fix.store.Save(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateSucceeded {
		t.Fatalf("expected provisional success, got %+v", outcome)
	}
	if outcome.Result.ProviderPaymentID != payment.CherrySentinelPaymentID {
		t.Fatalf("expected sentinel id, got %q", outcome.Result.ProviderPaymentID)
	}
	if fix.psp.creates != 0 {
		t.Fatalf("cherry must not create a PSP authorization, got %d", fix.psp.creates)
	}
}

func TestSubmitFreeQuoteSkipsPayment(t *testing.T) {
	fix := newFixture(t, &scriptedAdapter{rail: models.MethodCard})

	session := standardSession()
	session.Quote = models.PricingResult{Kind: models.ResultFree}
	if err := fix.store.Save(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateSucceeded {
		t.Fatalf("expected free booking to succeed, got %+v", outcome)
	}
	if fix.adapter.calls != 0 || fix.psp.creates != 0 {
		t.Fatalf("free quote must skip the payment step entirely")
	}
	if fix.finalizer.calls != 1 {
		t.Fatalf("free booking must still finalize")
	}
}

func TestSubmitZeroChargeNowSkipsPayment(t *testing.T) {
	fix := newFixture(t, &scriptedAdapter{rail: models.MethodCard})

	// A fully-reduced deposit leaves a standard quote with nothing to charge
	// now; the whole amount is collected later.
	session := standardSession()
	session.Quote = models.PricingResult{
		Kind:      models.ResultStandard,
		Subtotal:  dec("600"),
		Tax:       dec("46.50"),
		Deposit:   decimal.Zero,
		Fee:       decimal.Zero,
		Total:     dec("646.50"),
		Remaining: dec("646.50"),
	}
	if err := fix.store.Save(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	outcome, err := fix.orch.Submit(context.Background(), session.SessionID, models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.State != StateSucceeded {
		t.Fatalf("expected success, got %s", outcome.State)
	}
	if fix.adapter.calls != 0 || fix.psp.creates != 0 {
		t.Fatalf("zero charge-now must skip the payment step entirely")
	}
	if fix.finalizer.calls != 1 {
		t.Fatalf("booking must still finalize")
	}
}

func TestSubmitFinalizerFailureDoesNotRollBackPayment(t *testing.T) {
	adapter := &scriptedAdapter{
		rail:   models.MethodCard,
		script: []models.ConfirmationResult{{Success: true, ProviderPaymentID: "pi_1"}},
	}
	fix := newFixture(t, adapter)
	fix.finalizer.err = errors.New("appointments collection unavailable")

	outcome, err := fix.orch.Submit(context.Background(), "sess_1", models.BillingDetails{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// The charge stands even though the booking record is missing.
	if outcome.State != StateSucceeded || !outcome.Result.Success {
		t.Fatalf("captured payment must stay succeeded, got %+v", outcome)
	}
	if outcome.AppointmentID != "" {
		t.Fatalf("no appointment id should be reported, got %q", outcome.AppointmentID)
	}
}

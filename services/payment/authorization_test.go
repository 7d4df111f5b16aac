package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"lacquer/models"
)

type fakePSP struct {
	mu            sync.Mutex
	creates       int
	confirms      int
	cancelled     []string
	createErr     error
	confirmErr    error
	confirmStatus string
}

func (f *fakePSP) CreateIntent(ctx context.Context, amountCents int64, currency string, methodTypes []string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Intent{}, f.createErr
	}
	f.creates++
	return Intent{
		ID:           fmt.Sprintf("pi_%d", f.creates),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.creates),
		Status:       "requires_confirmation",
	}, nil
}

func (f *fakePSP) ConfirmIntent(ctx context.Context, id string, p ConfirmParams) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	if f.confirmErr != nil {
		return Intent{}, f.confirmErr
	}
	status := f.confirmStatus
	if status == "" {
		status = "succeeded"
	}
	return Intent{ID: id, Status: status}, nil
}

func (f *fakePSP) CancelIntent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func newTestManager(psp *fakePSP) *AuthorizationManager {
	return &AuthorizationManager{
		PSP:      psp,
		Currency: "usd",
		Logger:   zap.NewNop(),
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	mgr := newTestManager(&fakePSP{})
	_, err := mgr.Create(context.Background(), 0, []string{"card"})
	if err == nil {
		t.Fatalf("expected validation error for zero amount")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Class != models.ErrClassValidation {
		t.Fatalf("expected validation class, got %v", err)
	}
}

func TestEnsureFreshReusesLiveAuthorization(t *testing.T) {
	psp := &fakePSP{}
	mgr := newTestManager(psp)
	ctx := context.Background()

	first, err := mgr.EnsureFresh(ctx, nil, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	second, err := mgr.EnsureFresh(ctx, first, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same authorization id, got %s and %s", first.ID, second.ID)
	}
	if psp.creates != 1 {
		t.Fatalf("expected a single PSP create, got %d", psp.creates)
	}
}

func TestEnsureFreshRecreatesOnAmountChange(t *testing.T) {
	psp := &fakePSP{}
	mgr := newTestManager(psp)
	ctx := context.Background()

	first, err := mgr.EnsureFresh(ctx, nil, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	second, err := mgr.EnsureFresh(ctx, first, 20000, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("expected a new authorization after amount change")
	}
	if len(psp.cancelled) != 1 || psp.cancelled[0] != first.ID {
		t.Fatalf("expected stale intent %s cancelled, got %v", first.ID, psp.cancelled)
	}
}

func TestEnsureFreshRecreatesOnMethodChange(t *testing.T) {
	psp := &fakePSP{}
	mgr := newTestManager(psp)
	ctx := context.Background()

	first, _ := mgr.EnsureFresh(ctx, nil, 10775, []string{"card"})
	second, err := mgr.EnsureFresh(ctx, first, 10775, []string{"klarna"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a new authorization after method change")
	}
}

func TestEnsureFreshRecreatesAfterTTL(t *testing.T) {
	psp := &fakePSP{}
	mgr := newTestManager(psp)
	ctx := context.Background()

	created := time.Now()
	now := created
	mgr.Now = func() time.Time { return now }

	auth, err := mgr.EnsureFresh(ctx, nil, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}

	// Ten minutes in the authorization is still fresh.
	now = created.Add(10 * time.Minute)
	reused, err := mgr.EnsureFresh(ctx, auth, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if reused.ID != auth.ID {
		t.Fatalf("expected reuse at 10 minutes, got new id %s", reused.ID)
	}

	// Past the 20 minute TTL a recreate is forced.
	now = created.Add(21 * time.Minute)
	if !mgr.IsExpired(auth) {
		t.Fatalf("expected authorization expired at 21 minutes")
	}
	fresh, err := mgr.EnsureFresh(ctx, auth, 10775, []string{"card"})
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if fresh.ID == auth.ID {
		t.Fatalf("expected a new authorization after TTL")
	}
}

func TestEnsureFreshSerializesConcurrentCreates(t *testing.T) {
	psp := &fakePSP{}
	mgr := newTestManager(psp)
	ctx := context.Background()

	auth, _ := mgr.EnsureFresh(ctx, nil, 10775, []string{"card"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.EnsureFresh(ctx, auth, 10775, []string{"card"}); err != nil {
				t.Errorf("ensure fresh: %v", err)
			}
		}()
	}
	wg.Wait()

	if psp.creates != 1 {
		t.Fatalf("expected one PSP create across concurrent callers, got %d", psp.creates)
	}
}

func TestCreateClassifiesTransportFailure(t *testing.T) {
	psp := &fakePSP{createErr: errors.New("connection reset")}
	mgr := newTestManager(psp)

	_, err := mgr.Create(context.Background(), 10775, []string{"card"})
	var perr *Error
	if !errors.As(err, &perr) || perr.Class != models.ErrClassNetwork {
		t.Fatalf("expected network class, got %v", err)
	}
}

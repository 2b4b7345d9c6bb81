package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cashpoints/referralhub/internal/model"
)

func newTestLedger(referrers *fakeReferrerRepo, earnings *fakeEarningRepo) *ledgerService {
	ledger := NewLedgerService(referrers, earnings, zap.NewNop()).(*ledgerService)
	ledger.retryBackoff = 0
	return ledger
}

func TestSettle(t *testing.T) {
	referrers := newFakeReferrerRepo(&model.Referrer{ID: "1001"})
	earnings := &fakeEarningRepo{}
	ledger := newTestLedger(referrers, earnings)

	referralID := uuid.New()
	earningID, err := ledger.Settle(context.Background(), "1001", 2, &referralID,
		model.EarningKindReferralBonus, "Referral bonus for user 2002")
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if earningID == uuid.Nil {
		t.Error("Settle() returned nil earning id")
	}

	if got := referrers.balance("1001"); got != 2 {
		t.Errorf("balance = %d, want 2", got)
	}
	if len(earnings.earnings) != 1 {
		t.Fatalf("earnings = %d, want 1", len(earnings.earnings))
	}
	e := earnings.earnings[0]
	if e.UserID != "1001" || e.Amount != 2 || e.Kind != model.EarningKindReferralBonus {
		t.Errorf("earning = {%s, %d, %s}", e.UserID, e.Amount, e.Kind)
	}
	if e.ReferralID == nil || *e.ReferralID != referralID {
		t.Error("earning does not reference the referral")
	}
}

func TestSettle_UnknownReferrer(t *testing.T) {
	referrers := newFakeReferrerRepo()
	earnings := &fakeEarningRepo{}
	ledger := newTestLedger(referrers, earnings)

	_, err := ledger.Settle(context.Background(), "9999", 2, nil,
		model.EarningKindReferralBonus, "Referral bonus")
	if !errors.Is(err, ErrUnknownReferrer) {
		t.Fatalf("Settle() error = %v, want ErrUnknownReferrer", err)
	}
	if len(earnings.earnings) != 0 {
		t.Errorf("earnings written for unknown referrer: %d", len(earnings.earnings))
	}
	if len(referrers.balanceCalls) != 0 {
		t.Errorf("balance touched for unknown referrer: %v", referrers.balanceCalls)
	}
}

func TestSettle_RetriesTransientIncrementError(t *testing.T) {
	referrers := newFakeReferrerRepo(&model.Referrer{ID: "1001"})
	referrers.incrementErrs = 2 // fails twice, succeeds on the third attempt
	earnings := &fakeEarningRepo{}
	ledger := newTestLedger(referrers, earnings)

	if _, err := ledger.Settle(context.Background(), "1001", 2, nil,
		model.EarningKindReferralBonus, "Referral bonus"); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if got := referrers.balance("1001"); got != 2 {
		t.Errorf("balance = %d, want 2", got)
	}
}

func TestSettle_ExhaustedIncrementRetries(t *testing.T) {
	referrers := newFakeReferrerRepo(&model.Referrer{ID: "1001"})
	referrers.incrementErrs = 10 // more than maxAttempts
	earnings := &fakeEarningRepo{}
	ledger := newTestLedger(referrers, earnings)

	_, err := ledger.Settle(context.Background(), "1001", 2, nil,
		model.EarningKindReferralBonus, "Referral bonus")
	if !errors.Is(err, ErrLedgerWriteFailed) {
		t.Fatalf("Settle() error = %v, want ErrLedgerWriteFailed", err)
	}
	if len(earnings.earnings) != 0 {
		t.Errorf("earning written despite failed increment: %d", len(earnings.earnings))
	}
}

func TestSettle_CompensatesOnEarningInsertFailure(t *testing.T) {
	referrers := newFakeReferrerRepo(&model.Referrer{ID: "1001"})
	earnings := &fakeEarningRepo{insertErrs: 10} // never recovers
	ledger := newTestLedger(referrers, earnings)

	_, err := ledger.Settle(context.Background(), "1001", 2, nil,
		model.EarningKindReferralBonus, "Referral bonus")
	if !errors.Is(err, ErrLedgerWriteFailed) {
		t.Fatalf("Settle() error = %v, want ErrLedgerWriteFailed", err)
	}

	// The increment must have been taken back: paid-but-unlogged is the one
	// state Settle never leaves behind.
	if got := referrers.balance("1001"); got != 0 {
		t.Errorf("balance = %d after compensation, want 0", got)
	}
	if len(referrers.balanceCalls) != 2 {
		t.Fatalf("balanceCalls = %v, want increment then compensation", referrers.balanceCalls)
	}
	if referrers.balanceCalls[0].delta != 2 || referrers.balanceCalls[1].delta != -2 {
		t.Errorf("balanceCalls deltas = %d, %d, want 2, -2",
			referrers.balanceCalls[0].delta, referrers.balanceCalls[1].delta)
	}
}

func TestSettle_CanceledContextStopsRetries(t *testing.T) {
	referrers := newFakeReferrerRepo(&model.Referrer{ID: "1001"})
	referrers.incrementErrs = 10
	earnings := &fakeEarningRepo{}
	ledger := newTestLedger(referrers, earnings)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.Settle(ctx, "1001", 2, nil, model.EarningKindReferralBonus, "Referral bonus")
	if !errors.Is(err, ErrLedgerWriteFailed) {
		t.Fatalf("Settle() error = %v, want ErrLedgerWriteFailed", err)
	}
	if referrers.incrementErrs != 9 {
		t.Errorf("retries after cancellation: %d attempts consumed", 10-referrers.incrementErrs)
	}
}

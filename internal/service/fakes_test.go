package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// fakeReferralRepo enforces referred-id uniqueness and the conditional
// transition semantics under a mutex, the way the unique index and the
// predicated updates do at the store.
type fakeReferralRepo struct {
	mu         sync.Mutex
	byReferred map[string]*model.Referral

	// beforeGetByReferred, when set, runs at the top of GetByReferredID
	// outside the lock. Tests use it to hold concurrent readers at the
	// same observed snapshot.
	beforeGetByReferred func()
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{byReferred: map[string]*model.Referral{}}
}

func (f *fakeReferralRepo) Create(_ context.Context, referral *model.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byReferred[referral.ReferredID]; exists {
		return gorm.ErrDuplicatedKey
	}
	referral.ID = uuid.New()
	referral.CreatedAt = time.Now()
	cp := *referral
	f.byReferred[referral.ReferredID] = &cp
	return nil
}

func (f *fakeReferralRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byReferred {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReferralRepo) GetByReferredID(_ context.Context, referredID string) (*model.Referral, error) {
	if f.beforeGetByReferred != nil {
		f.beforeGetByReferred()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byReferred[referredID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReferralRepo) findLocked(id uuid.UUID) *model.Referral {
	for _, r := range f.byReferred {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeReferralRepo) MarkVerified(_ context.Context, id uuid.UUID, bonus int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findLocked(id)
	if r == nil || r.Status != model.ReferralStatusPending {
		return gorm.ErrRecordNotFound
	}
	r.Status = model.ReferralStatusVerified
	r.BonusAmount = bonus
	return nil
}

func (f *fakeReferralRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.findLocked(id); r != nil {
		r.IsActive = true
		r.LeaveAt = nil
	}
	return nil
}

func (f *fakeReferralRepo) TransitionRejoin(_ context.Context, id uuid.UUID, observedJoinAt, joinAt time.Time, reward int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findLocked(id)
	if r == nil || !r.LastJoinAt.Equal(observedJoinAt) {
		return false, nil
	}
	r.IsActive = true
	r.LeaveAt = nil
	r.LastJoinAt = joinAt
	rejoinAt := joinAt
	r.LastRejoinAt = &rejoinAt
	if reward > 0 {
		r.RejoinCount++
		r.BonusAmount += reward
	}
	return true, nil
}

func (f *fakeReferralRepo) RevertRejoin(_ context.Context, id uuid.UUID, joinAt time.Time, prev *model.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findLocked(id)
	if r == nil || !r.LastJoinAt.Equal(joinAt) {
		return nil
	}
	r.IsActive = prev.IsActive
	r.LeaveAt = prev.LeaveAt
	r.LastJoinAt = prev.LastJoinAt
	r.LastRejoinAt = prev.LastRejoinAt
	r.RejoinCount = prev.RejoinCount
	r.BonusAmount = prev.BonusAmount
	return nil
}

func (f *fakeReferralRepo) MarkLeft(_ context.Context, id uuid.UUID, leaveAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.findLocked(id); r != nil {
		r.IsActive = false
		r.LeaveAt = &leaveAt
	}
	return nil
}

func (f *fakeReferralRepo) MarkRejected(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.findLocked(id); r != nil {
		r.Status = model.ReferralStatusRejected
		r.IsActive = false
	}
	return nil
}

func (f *fakeReferralRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for referredID, r := range f.byReferred {
		if r.ID == id {
			delete(f.byReferred, referredID)
			return nil
		}
	}
	return nil
}

func (f *fakeReferralRepo) CountByStatus(_ context.Context, referrerID string) (*repository.StatusCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := &repository.StatusCounts{}
	for _, r := range f.byReferred {
		if r.ReferrerID != referrerID {
			continue
		}
		switch r.Status {
		case model.ReferralStatusPending:
			counts.Pending++
		case model.ReferralStatusVerified:
			counts.Verified++
		case model.ReferralStatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (f *fakeReferralRepo) ListByReferrer(_ context.Context, referrerID string, limit, offset int) ([]model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Referral
	for _, r := range f.byReferred {
		if r.ReferrerID == referrerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReferralRepo) List(_ context.Context, limit, offset int) ([]model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Referral
	for _, r := range f.byReferred {
		out = append(out, *r)
	}
	return out, nil
}

type balanceCall struct {
	id    string
	delta int64
}

type fakeReferrerRepo struct {
	mu            sync.Mutex
	byID          map[string]*model.Referrer
	balanceCalls  []balanceCall
	incrementErrs int // transient errors to return before succeeding
	getMisses     int // not-found results to return before reading through
	insertBlocked bool
}

func newFakeReferrerRepo(seed ...*model.Referrer) *fakeReferrerRepo {
	f := &fakeReferrerRepo{byID: map[string]*model.Referrer{}}
	for _, r := range seed {
		cp := *r
		f.byID[r.ID] = &cp
	}
	return f
}

func (f *fakeReferrerRepo) Create(_ context.Context, referrer *model.Referrer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertBlocked {
		return errStoreDown
	}
	if _, exists := f.byID[referrer.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	cp := *referrer
	f.byID[referrer.ID] = &cp
	return nil
}

func (f *fakeReferrerRepo) GetByID(_ context.Context, id string) (*model.Referrer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getMisses > 0 {
		f.getMisses--
		return nil, gorm.ErrRecordNotFound
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReferrerRepo) IncrementBalance(_ context.Context, id string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErrs > 0 {
		f.incrementErrs--
		return errStoreDown
	}
	r, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Balance += delta
	f.balanceCalls = append(f.balanceCalls, balanceCall{id: id, delta: delta})
	return nil
}

func (f *fakeReferrerRepo) IncrementVerifiedReferrals(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	r.TotalVerifiedReferrals++
	return r.TotalVerifiedReferrals, nil
}

func (f *fakeReferrerRepo) PromoteLevel(_ context.Context, id string, level int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if r.Level >= level {
		return false, nil
	}
	r.Level = level
	return true, nil
}

func (f *fakeReferrerRepo) TopByVerifiedReferrals(_ context.Context, limit int) ([]model.Referrer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Referrer
	for _, r := range f.byID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVerifiedReferrals != out[j].TotalVerifiedReferrals {
			return out[i].TotalVerifiedReferrals > out[j].TotalVerifiedReferrals
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReferrerRepo) balance(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok {
		return r.Balance
	}
	return 0
}

type fakeEarningRepo struct {
	mu         sync.Mutex
	earnings   []model.Earning
	insertErrs int // failures to return before succeeding
}

func (f *fakeEarningRepo) Insert(_ context.Context, earning *model.Earning) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErrs > 0 {
		f.insertErrs--
		return errStoreDown
	}
	earning.ID = uuid.New()
	if earning.CreatedAt.IsZero() {
		earning.CreatedAt = time.Now()
	}
	f.earnings = append(f.earnings, *earning)
	return nil
}

func (f *fakeEarningRepo) SumByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.earnings {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (f *fakeEarningRepo) SumByUserSince(_ context.Context, userID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.earnings {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (f *fakeEarningRepo) SumByUserPerKind(_ context.Context, userID string) (map[model.EarningKind]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := map[model.EarningKind]int64{}
	for _, e := range f.earnings {
		if e.UserID == userID {
			sums[e.Kind] += e.Amount
		}
	}
	return sums, nil
}

func (f *fakeEarningRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Earning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Earning
	for _, e := range f.earnings {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEarningRepo) byKind(kind model.EarningKind) []model.Earning {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Earning
	for _, e := range f.earnings {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []model.Notification
}

func (f *fakeNotificationRepo) Insert(_ context.Context, notification *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notification.ID = uuid.New()
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) byKind(kind model.NotificationKind) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

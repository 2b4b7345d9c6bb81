package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
	"cashpoints/referralhub/pkg/referralcode"
)

// ReferrerService serves the per-user aggregate projection. Aggregates are
// created lazily on first read with a freshly generated referral code.
type ReferrerService interface {
	GetOrCreate(ctx context.Context, id string) (*model.Referrer, error)
	Notifications(ctx context.Context, id string, limit, offset int) ([]model.Notification, error)
}

type referrerService struct {
	referrerRepo     repository.ReferrerRepository
	notificationRepo repository.NotificationRepository
}

func NewReferrerService(referrerRepo repository.ReferrerRepository, notificationRepo repository.NotificationRepository) ReferrerService {
	return &referrerService{
		referrerRepo:     referrerRepo,
		notificationRepo: notificationRepo,
	}
}

func (s *referrerService) GetOrCreate(ctx context.Context, id string) (*model.Referrer, error) {
	if id == "" {
		return nil, ErrInvalidRequest
	}

	referrer, err := s.referrerRepo.GetByID(ctx, id)
	if err == nil {
		return referrer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load referrer: %w", err)
	}

	// Retry covers both a referral-code collision and a concurrent create
	// of the same aggregate.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := referralcode.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}

		referrer = &model.Referrer{ID: id, ReferralCode: code}
		err = s.referrerRepo.Create(ctx, referrer)
		if err == nil {
			return referrer, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create referrer: %w", err)
		}

		if existing, getErr := s.referrerRepo.GetByID(ctx, id); getErr == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("create referrer %s: %w", id, gorm.ErrDuplicatedKey)
}

func (s *referrerService) Notifications(ctx context.Context, id string, limit, offset int) ([]model.Notification, error) {
	if id == "" {
		return nil, ErrInvalidRequest
	}
	return s.notificationRepo.ListByUser(ctx, id, limit, offset)
}

var _ ReferrerService = (*referrerService)(nil)

package repository

import (
	"context"

	"cashpoints/referralhub/internal/model"
)

type NotificationRepository interface {
	Insert(ctx context.Context, notification *model.Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
}

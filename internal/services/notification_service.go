package services

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
)

// StaffAlerter raises an in-app alert for every staff account.
type StaffAlerter interface {
	NotifyStaff(ctx context.Context, title, message, notifType string) error
}

type NotificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
}

func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo}
}

func (s *NotificationService) FindByUser(ctx context.Context, userID uint, query *repository.ListQuery) ([]models.Notification, int64, error) {
	return s.repo.FindByUser(ctx, userID, query)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uint) error {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if notification.UserID != userID {
		return ErrNotFound
	}
	notification.MarkAsRead(time.Now())
	return s.repo.Update(ctx, notification)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if notification.UserID != userID {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, title, message, notifType string) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// NotifyEmail notifies the user registered under email. It returns
// ErrNotFound when no such user exists.
func (s *NotificationService) NotifyEmail(ctx context.Context, email, title, message, notifType string) (*models.Notification, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err)
	}
	return s.NotifyUser(ctx, user.ID, title, message, notifType)
}

// NotifyStaff fans a notification out to every staff account. Individual
// failures are logged and skipped.
func (s *NotificationService) NotifyStaff(ctx context.Context, title, message, notifType string) error {
	staff, err := s.userRepo.FindStaff(ctx)
	if err != nil {
		return err
	}
	for _, member := range staff {
		if _, err := s.NotifyUser(ctx, member.ID, title, message, notifType); err != nil {
			logger.Warn("failed to notify staff member", "user_id", member.ID, "error", err)
		}
	}
	return nil
}

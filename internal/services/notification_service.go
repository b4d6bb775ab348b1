package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus_store/internal/events"
	"campus_store/internal/models"
	"campus_store/internal/repository"

	"go.uber.org/zap"
)

type NotificationInput struct {
	Type    string
	Title   string
	Message string
	OrderID *uint
}

// NotificationService stores in-app notifications and broadcasts each one on new-notification.
type NotificationService interface {
	NotifyUser(ctx context.Context, userID uint, in NotificationInput) (*models.Notification, error)
	NotifyAdmins(ctx context.Context, in NotificationInput) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	ListForAdmins(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint, userID *uint) error
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, publisher events.Publisher, logger *zap.Logger) (NotificationService, error) {
	if repo == nil {
		return nil, errors.New("notification service: repository is required")
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notificationService{repo: repo, publisher: publisher, logger: logger.Named("notifications")}, nil
}

func (s *notificationService) NotifyUser(ctx context.Context, userID uint, in NotificationInput) (*models.Notification, error) {
	if userID == 0 {
		return nil, invalidInput("user id is required")
	}
	n := &models.Notification{Audience: models.AudienceUser, UserID: &userID}
	return s.create(ctx, n, in)
}

func (s *notificationService) NotifyAdmins(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	return s.create(ctx, &models.Notification{Audience: models.AudienceAdmin}, in)
}

func (s *notificationService) create(ctx context.Context, n *models.Notification, in NotificationInput) (*models.Notification, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalidInput("notification title is required")
	}
	n.Type = in.Type
	n.Title = in.Title
	n.Message = in.Message
	n.OrderID = in.OrderID
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("save notification: %w", fromRepository(err))
	}

	payload := events.NotificationPayload{
		NotificationID: n.ID,
		Audience:       string(n.Audience),
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		OrderID:        n.OrderID,
	}
	if err := s.publisher.Publish(ctx, events.TopicNewNotification, payload); err != nil {
		return n, fmt.Errorf("notification %d saved but not broadcast: %w", n.ID, err)
	}
	return n, nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	out, err := s.repo.ListForUser(ctx, userID, clampLimit(limit))
	return out, fromRepository(err)
}

func (s *notificationService) ListForAdmins(ctx context.Context, limit int) ([]models.Notification, error) {
	out, err := s.repo.ListForAdmins(ctx, clampLimit(limit))
	return out, fromRepository(err)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID *uint) error {
	return fromRepository(s.repo.MarkRead(ctx, id, userID))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 200:
		return 200
	}
	return limit
}

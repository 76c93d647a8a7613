package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service delivers in-app notifications and alert emails.
type Service interface {
	ShouldNotify(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) (bool, error)
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	SendAlertEmail(ctx context.Context, email AlertEmail) error
	SetPreference(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, enabled bool) error
}

// NotifyInput is an in-app notification addressed to one user.
type NotifyInput struct {
	UserID   uuid.UUID
	Type     enums.NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]any
}

// AlertEmail is handed to the configured Mailer for delivery.
type AlertEmail struct {
	To       string            `json:"to"`
	From     string            `json:"from"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Link     string            `json:"link,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	QueuedAt time.Time         `json:"queuedAt"`
}

// Mailer hands alert emails to an external delivery pipeline.
type Mailer interface {
	SendAlert(ctx context.Context, email AlertEmail) error
}

// ServiceParams wires the notifications service.
type ServiceParams struct {
	Repo      Repository
	Mailer    Mailer
	Logger    *logger.Logger
	FromEmail string
	Now       func() time.Time
}

type service struct {
	repo      Repository
	mailer    Mailer
	logg      *logger.Logger
	fromEmail string
	now       func() time.Time
}

// NewService wires notifications dependencies. Mailer may be nil when email alerts are disabled.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		mailer:    params.Mailer,
		logg:      params.Logger,
		fromEmail: params.FromEmail,
		now:       now,
	}, nil
}

func (s *service) ShouldNotify(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !category.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	enabled, err := s.repo.CategoryEnabled(ctx, userID, category)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification preference")
	}
	return enabled, nil
}

func (s *service) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	notification := &models.Notification{
		UserID:    input.UserID,
		Type:      input.Type,
		Category:  input.Type.Category(),
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: s.now().UTC(),
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		notification.Link = &link
	}
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode notification metadata")
		}
		notification.Metadata = raw
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

func (s *service) SendAlertEmail(ctx context.Context, email AlertEmail) error {
	if s.mailer == nil {
		s.logg.Debug(s.logg.WithField(ctx, "to", email.To), "alert email skipped: no mailer configured")
		return nil
	}
	if strings.TrimSpace(email.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert email recipient required")
	}
	if email.From == "" {
		email.From = s.fromEmail
	}
	if email.QueuedAt.IsZero() {
		email.QueuedAt = s.now().UTC()
	}
	if err := s.mailer.SendAlert(ctx, email); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send alert email")
	}
	return nil
}

func (s *service) SetPreference(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, enabled bool) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	if err := s.repo.SetPreference(ctx, userID, category, enabled, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notification preference")
	}
	return nil
}

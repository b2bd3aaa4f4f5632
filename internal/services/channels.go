package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/go-resty/resty/v2"
)

// Delivery failure reasons recorded on the reminder row.
var (
	ErrSMSNotConfigured = errors.New("sms_not_configured")
	ErrMissingPhone     = errors.New("missing_phone")
	ErrMissingEmail     = errors.New("missing_email")
	ErrNoUser           = errors.New("no_user")
)

// Delivery is one rendered reminder ready for a channel.
type Delivery struct {
	Recipient string
	Subject   string
	Content   string
}

// Channel delivers a rendered reminder and returns the provider reference.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) (string, error)
}

// EmailChannel sends reminders through the email service.
type EmailChannel struct {
	email *EmailService
}

func NewEmailChannel(email *EmailService) *EmailChannel {
	return &EmailChannel{email: email}
}

func (c *EmailChannel) Name() string { return models.ReminderTypeEmail }

func (c *EmailChannel) Deliver(ctx context.Context, d Delivery) (string, error) {
	if c.email == nil || !c.email.Configured() {
		return "", ErrEmailNotConfigured
	}
	if d.Recipient == "" {
		return "", ErrMissingEmail
	}
	return c.email.SendReminder(ctx, d.Recipient, d.Subject, d.Content)
}

// SMSChannel posts reminders to an HTTP SMS gateway.
type SMSChannel struct {
	client *resty.Client
	cfg    config.SMSConfig
}

func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)
	return &SMSChannel{client: client, cfg: cfg}
}

func (c *SMSChannel) Name() string { return models.ReminderTypeSMS }

func (c *SMSChannel) Deliver(ctx context.Context, d Delivery) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrSMSNotConfigured
	}
	phone := gateway.NormalizePhone(d.Recipient)
	if phone == "" {
		return "", ErrMissingPhone
	}

	var out map[string]any
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"from":    c.cfg.SenderID,
			"to":      phone,
			"message": d.Content,
		}).
		SetResult(&out).
		SetError(&out).
		Post("")
	if err != nil {
		return "", fmt.Errorf("sms gateway: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sms gateway returned HTTP %d", resp.StatusCode())
	}
	for _, key := range []string{"message_id", "messageId", "id", "reference"} {
		switch v := out[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatFloat(v, 'f', 0, 64), nil
		}
	}
	return "sms-" + strconv.FormatInt(time.Now().UnixNano(), 36), nil
}

// PushChannel delivers reminders as in-app notifications to the user whose
// email matches the recipient.
type PushChannel struct {
	users         repository.UserRepository
	notifications *NotificationService
}

func NewPushChannel(users repository.UserRepository, notifications *NotificationService) *PushChannel {
	return &PushChannel{users: users, notifications: notifications}
}

func (c *PushChannel) Name() string { return models.ReminderTypePush }

func (c *PushChannel) Deliver(ctx context.Context, d Delivery) (string, error) {
	user, err := c.users.FindByEmail(ctx, d.Recipient)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrNoUser
		}
		return "", err
	}
	n, err := c.notifications.NotifyUser(ctx, user.ID, d.Subject, d.Content, models.NotificationTypeRentReminder)
	if err != nil {
		return "", err
	}
	return "notification-" + strconv.FormatUint(uint64(n.ID), 10), nil
}

package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/resend/resend-go/v2"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// ErrEmailNotConfigured is returned when neither Resend nor SMTP is set up.
var ErrEmailNotConfigured = errors.New("email_not_configured")

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type smtpSendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	config       config.EmailConfig
	resendClient *resend.Client
	sendMail     smtpSendFunc
}

func NewEmailService(cfg *config.Config) *EmailService {
	s := &EmailService{
		config:   cfg.Email,
		sendMail: smtp.SendMail,
	}
	if cfg.Email.ResendAPIKey != "" {
		s.resendClient = resend.NewClient(cfg.Email.ResendAPIKey)
	}
	return s
}

// Configured reports whether any transport is available.
func (s *EmailService) Configured() bool {
	return s.config.Configured()
}

// Send delivers msg and returns the transport's message id, if any.
func (s *EmailService) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", errors.New("email address is empty")
	}

	switch {
	case s.resendClient != nil:
		params := &resend.SendEmailRequest{
			From:    s.config.From,
			To:      []string{msg.To},
			Subject: msg.Subject,
			Html:    msg.HTML,
			Text:    msg.Text,
		}
		sent, err := s.resendClient.Emails.Send(params)
		if err != nil {
			logger.Error("failed to send email", "to", msg.To, "error", err)
			return "", err
		}
		logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "transport", "resend")
		return sent.Id, nil

	case s.config.Host != "":
		if err := s.sendSMTP(msg); err != nil {
			logger.Error("failed to send email", "to", msg.To, "error", err)
			return "", err
		}
		logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "transport", "smtp")
		return "", nil
	}
	return "", ErrEmailNotConfigured
}

func (s *EmailService) sendSMTP(msg EmailMessage) error {
	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s; charset=UTF-8\r\n\r\n", contentType)
	buf.WriteString(body)

	return s.sendMail(addr, auth, s.config.From, []string{msg.To}, buf.Bytes())
}

func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	data := struct {
		Name string
		Role string
	}{
		Name: user.DisplayName(),
		Role: user.Role,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}
	_, err = s.Send(ctx, EmailMessage{To: user.Email, Subject: "Welcome to Maisha", HTML: body})
	return err
}

func (s *EmailService) SendBookingConfirmed(ctx context.Context, booking *models.Booking) error {
	data := struct {
		Name          string
		Reference     string
		PropertyTitle string
		RoomNumber    string
		CheckIn       string
		CheckOut      string
		Total         string
		Paid          string
	}{
		Name:          booking.Customer.DisplayName(),
		Reference:     booking.BookingReference,
		PropertyTitle: booking.Property.Title,
		CheckIn:       booking.CheckInDate.Format(reminderDateLayout),
		CheckOut:      booking.CheckOutDate.Format(reminderDateLayout),
		Total:         money.Format(booking.TotalAmount),
		Paid:          money.Format(booking.PaidAmount),
	}
	if booking.RoomNumber != nil {
		data.RoomNumber = *booking.RoomNumber
	}

	body, err := s.renderTemplate("booking_confirmed.html", data)
	if err != nil {
		return err
	}
	_, err = s.Send(ctx, EmailMessage{
		To:      booking.Customer.Email,
		Subject: "Booking confirmed - " + booking.BookingReference,
		HTML:    body,
	})
	return err
}

func (s *EmailService) SendInvoiceIssued(ctx context.Context, invoice *models.RentInvoice) error {
	data := struct {
		Name          string
		InvoiceNumber string
		PropertyTitle string
		PeriodStart   string
		PeriodEnd     string
		DueDate       string
		Total         string
	}{
		Name:          invoice.Tenant.DisplayName(),
		InvoiceNumber: invoice.InvoiceNumber,
		PropertyTitle: invoice.Lease.Property.Title,
		PeriodStart:   invoice.PeriodStart.Format(reminderDateLayout),
		PeriodEnd:     invoice.PeriodEnd.Format(reminderDateLayout),
		DueDate:       invoice.DueDate.Format(reminderDateLayout),
		Total:         money.Format(invoice.TotalAmount),
	}

	body, err := s.renderTemplate("invoice_issued.html", data)
	if err != nil {
		return err
	}
	_, err = s.Send(ctx, EmailMessage{
		To:      invoice.Tenant.Email,
		Subject: "Rent invoice " + invoice.InvoiceNumber,
		HTML:    body,
	})
	return err
}

// SendReminder wraps a rendered reminder body in the reminder layout.
func (s *EmailService) SendReminder(ctx context.Context, to, subject, content string) (string, error) {
	data := struct {
		Subject    string
		Paragraphs []string
	}{
		Subject:    subject,
		Paragraphs: strings.Split(strings.TrimSpace(content), "\n\n"),
	}
	body, err := s.renderTemplate("reminder.html", data)
	if err != nil {
		return "", err
	}
	return s.Send(ctx, EmailMessage{To: to, Subject: subject, HTML: body, Text: content})
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"

	"eduplatform/internal/config"
	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendRegistrationEmail(ctx context.Context, toEmail, fullName string) error
	SendNotificationEmail(ctx context.Context, toEmail, recipientName string, notif *domain.Notification, payload map[string]any) error
}

type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type service struct {
	client sender
	config *config.Config
}

func NewService(cfg *config.Config) Service {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &service{
		client: client.Emails,
		config: cfg,
	}
}

type templateData struct {
	Title     string
	Name      string
	Message   string
	Note      string
	Link      string
	Signature string
}

func (s *service) sendEmail(ctx context.Context, toEmail, subject, templateName string, data templateData) error {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		return fmt.Errorf("failed to parse email templates: %w", err)
	}

	data.Signature = i18n.Translate(s.config.NotificationLocale, "EMAIL_SIGNATURE")

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout.html", data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("EduPlatform <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Html:    body.String(),
		Subject: subject,
	}

	_, err = s.client.SendWithContext(ctx, params)
	return err
}

func (s *service) SendRegistrationEmail(ctx context.Context, toEmail, fullName string) error {
	data := templateData{
		Title: "Welcome to EduPlatform",
		Name:  fullName,
		Link:  fmt.Sprintf("https://%s/login", s.config.Domain),
	}
	return s.sendEmail(ctx, toEmail, "Welcome to EduPlatform!", "registration.html", data)
}

func (s *service) SendNotificationEmail(ctx context.Context, toEmail, recipientName string, notif *domain.Notification, payload map[string]any) error {
	data := templateData{
		Title:   notif.Title,
		Name:    recipientName,
		Message: notif.Message,
		Link:    fmt.Sprintf("https://%s/notifications", s.config.Domain),
	}

	var templateName string
	switch notif.Type {
	case domain.NotifAccessRequested:
		templateName = "access_request.html"
		if id, ok := payload["request_id"].(string); ok {
			data.Link = fmt.Sprintf("https://%s/review/access-requests/%s", s.config.Domain, id)
		}
	case domain.NotifAccessApproved, domain.NotifAccessRejected:
		templateName = "access_decision.html"
		if feedback, ok := payload["feedback"].(string); ok {
			data.Note = feedback
		}
		if id, ok := payload["level_id"].(string); ok {
			data.Link = fmt.Sprintf("https://%s/levels/%s", s.config.Domain, id)
		}
	case domain.NotifAccessGranted:
		templateName = "access_granted.html"
		if id, ok := payload["level_id"].(string); ok {
			data.Link = fmt.Sprintf("https://%s/levels/%s", s.config.Domain, id)
		}
	default:
		return fmt.Errorf("no email template for notification type %q", notif.Type)
	}

	return s.sendEmail(ctx, toEmail, notif.Title+" - EduPlatform", templateName, data)
}

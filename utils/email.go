package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrEmailDisabled = errors.New("SENDGRID_API_KEY is not set")

// SendEmail sends an email using SendGrid
func SendEmail(ctx context.Context, toName, toEmail, subject, textContent, htmlContent string) error {
	if config.SendGridAPIKey == "" {
		return ErrEmailDisabled
	}

	from := mail.NewEmail("Fitly App", "no-reply@tryonfusion.com")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(config.SendGridAPIKey)

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

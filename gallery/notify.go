package gallery

import (
	"context"
	"fmt"
	"html"

	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
)

// Sender delivers one e-mail.
type Sender func(ctx context.Context, toName, toEmail, subject, textContent, htmlContent string) error

// EmailNotifier mails a fixed recipient whenever a try-on completes.
type EmailNotifier struct {
	To   string
	Send Sender
}

func (n *EmailNotifier) OnCompleted(ctx context.Context, job tryon.CompletedJob) error {
	subject := fmt.Sprintf("Your try-on %s is ready", job.Result.FileName)
	text := fmt.Sprintf("%s (%s) finished.\nView it here: %s\n", job.Result.FileName, job.Result.Category, job.Result.ImageURL)
	body := fmt.Sprintf(`<p><strong>%s</strong> (%s) finished.</p><p><a href="%s">View result</a></p>`,
		html.EscapeString(job.Result.FileName),
		html.EscapeString(string(job.Result.Category)),
		html.EscapeString(job.Result.ImageURL),
	)
	if err := n.Send(ctx, "", n.To, subject, text, body); err != nil {
		return fmt.Errorf("notify %s: %w", n.To, err)
	}
	return nil
}

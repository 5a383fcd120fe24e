package ses

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"fnolguard/internal/config"
	"fnolguard/internal/port"
)

// SendEmailAPI is the subset of the SES v2 client used here.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client      SendEmailAPI
	fromAddress string
	fromName    string
	recipients  []string
}

// NewSESNotifier creates a new SES-backed EscalationNotifier.
func NewSESNotifier(ctx context.Context, cfg *config.EscalationConfig) (port.EscalationNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewWithClient creates a notifier around an existing SES client.
func NewWithClient(client SendEmailAPI, cfg *config.EscalationConfig) (port.EscalationNotifier, error) {
	if len(cfg.Recipients) == 0 {
		return nil, errors.New("escalation recipients are not set")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New("escalation from_address is not set")
	}
	return &sesNotifier{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		recipients:  cfg.Recipients,
	}, nil
}

func (s *sesNotifier) NotifyEscalation(ctx context.Context, e port.Escalation) error {
	subject := fmt.Sprintf("[FNOL] %s fraud confidence claim flagged by %s", e.Score, e.Model)
	htmlBody := buildEscalationHTML(e)
	textBody := buildEscalationText(e)

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildEscalationText(e port.Escalation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A claim was assessed as %s fraud confidence by model %s.\n\n", e.Score, e.Model)
	b.WriteString("Narrative excerpt:\n")
	b.WriteString(e.NarrativeExcerpt)
	b.WriteString("\n\nRationale:\n")
	if len(e.Rationale) == 0 {
		b.WriteString("- (none given)\n")
	}
	for _, r := range e.Rationale {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	if len(e.Files) > 0 {
		b.WriteString("\nAttached files: ")
		b.WriteString(strings.Join(e.Files, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nFNOL Fraud Review")
	return b.String()
}

func buildEscalationHTML(e port.Escalation) string {
	var items strings.Builder
	if len(e.Rationale) == 0 {
		items.WriteString("<li><em>(none given)</em></li>")
	}
	for _, r := range e.Rationale {
		items.WriteString("<li>")
		items.WriteString(html.EscapeString(r))
		items.WriteString("</li>")
	}
	files := "none"
	if len(e.Files) > 0 {
		files = html.EscapeString(strings.Join(e.Files, ", "))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #B91C1C;">%s fraud confidence</h2>
  <p>Model <strong>%s</strong> flagged a first notice of loss for review.</p>
  <h3 style="color: #333;">Narrative excerpt</h3>
  <p style="white-space: pre-wrap; color: #444;">%s</p>
  <h3 style="color: #333;">Rationale</h3>
  <ul>%s</ul>
  <p style="color: #666;">Attached files: %s</p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">FNOL Fraud Review</p>
</body>
</html>`, html.EscapeString(string(e.Score)), html.EscapeString(e.Model), html.EscapeString(e.NarrativeExcerpt), items.String(), files)
}

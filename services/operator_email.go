package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/rpupo63/consulting-site-backend/config"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rs/zerolog/log"
)

const resendEndpoint = "https://api.resend.com/emails"

// OperatorNotifier is told about deletes that left a post in place after some
// of its assets were removed.
type OperatorNotifier interface {
	NotifyDeleteFailed(ctx context.Context, post *models.BlogPost, report *DeleteReport) error
}

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// ResendNotifier emails operators through the Resend API.
type ResendNotifier struct {
	apiKey     string
	from       string
	recipients []string
	siteURL    string
	endpoint   string
	client     *http.Client
}

func NewResendNotifier(apiKey, from string, recipients []string, siteURL string) *ResendNotifier {
	return &ResendNotifier{
		apiKey:     apiKey,
		from:       from,
		recipients: recipients,
		siteURL:    siteURL,
		endpoint:   resendEndpoint,
		client:     &http.Client{},
	}
}

// NewResendNotifierFromConfig returns nil when RESEND_API_KEY, RESEND_FROM_EMAIL
// or OPERATOR_EMAILS is missing; alerts are then only logged.
func NewResendNotifierFromConfig(cfg map[string]string) *ResendNotifier {
	apiKey := config.GetString(cfg, "RESEND_API_KEY", "")
	from := config.GetString(cfg, "RESEND_FROM_EMAIL", "")
	recipients := config.GetList(cfg, "OPERATOR_EMAILS", nil)
	if apiKey == "" || from == "" || len(recipients) == 0 {
		log.Info().Msg("operator email alerts disabled, RESEND_API_KEY, RESEND_FROM_EMAIL or OPERATOR_EMAILS not set")
		return nil
	}
	return NewResendNotifier(apiKey, from, recipients, config.GetString(cfg, "BASE_URL", ""))
}

func (n *ResendNotifier) NotifyDeleteFailed(ctx context.Context, post *models.BlogPost, report *DeleteReport) error {
	subject := fmt.Sprintf("Blog post %q was not deleted", post.Title)
	return n.send(ctx, subject, deleteFailedEmail(post, report, n.siteURL))
}

func deleteFailedEmail(post *models.BlogPost, report *DeleteReport, siteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(report.Message))
	fmt.Fprintf(&b, "<p>Post <code>%s</code> is still published", post.ID)
	if link := blogPostURL(siteURL, post.ID.String()); link != "" {
		fmt.Fprintf(&b, ` at <a href="%s">%s</a>`, html.EscapeString(link), html.EscapeString(link))
	}
	b.WriteString(". Record error: " + html.EscapeString(report.RecordError) + "</p>")

	b.WriteString("<ul>")
	for _, a := range report.Assets {
		fmt.Fprintf(&b, "<li>%s: %s", html.EscapeString(string(a.Status)), html.EscapeString(a.URL))
		if a.Reason != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(a.Reason))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// blogPostURL builds the public URL of a post, e.g. https://example.com/blog/{postID}
func blogPostURL(baseURL, postID string) string {
	if baseURL == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf("%s/blog/%s", strings.TrimSuffix(baseURL, "/"), postID)
}

func (n *ResendNotifier) send(ctx context.Context, subject, body string) error {
	jsonPayload, err := json.Marshal(ResendEmailRequest{
		From:    n.from,
		To:      n.recipients,
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Sent operator alert via Resend")
	}
	return nil
}

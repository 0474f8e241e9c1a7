package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"

	"zakat_flow_go/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate loads an email template pair from the templates/emails
// directory and executes it with data
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	basePath := "templates/emails"

	loadAndExec := func(ext string) (string, error) {
		path := filepath.Join(basePath, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %v", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %v", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %v", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// buildEmailWithFallback loads a template or falls back to a plain text body
// so a missing template never blocks the send
func buildEmailWithFallback(templateName string, data interface{}, toEmail, fallbackText string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, data)
	if err != nil {
		log.Printf("Error loading %s email template: %v", templateName, err)
		htmlBody = "<p>" + template.HTMLEscapeString(fallbackText) + "</p>"
		textBody = fallbackText
	}

	return &Email{
		To:       []string{toEmail},
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// BuildMagicLinkEmail builds the applicant sign-in email
func BuildMagicLinkEmail(cfg *config.Config, toEmail, name, caseID, token string) *Email {
	link := fmt.Sprintf("%s/api/auth/magic-link/verify?token=%s", cfg.AppURL, token)
	data := map[string]string{
		"Name":   name,
		"CaseID": caseID,
		"Link":   link,
	}
	fallback := fmt.Sprintf("Assalamu alaikum %s, sign in to follow your zakat request %s: %s", name, caseID, link)
	email := buildEmailWithFallback("magic_link", data, toEmail, fallback)
	email.Subject = fmt.Sprintf("Your secure sign-in link for case %s", caseID)
	return email
}

// BuildNewMessageEmail builds the per-participant new message notification
func BuildNewMessageEmail(cfg *config.Config, toEmail, senderName, conversationTitle, preview string) *Email {
	data := map[string]string{
		"SenderName": senderName,
		"Title":      conversationTitle,
		"Preview":    preview,
		"AppURL":     cfg.AppURL,
	}
	fallback := fmt.Sprintf("%s sent a new message in %s: %s", senderName, conversationTitle, preview)
	email := buildEmailWithFallback("new_message", data, toEmail, fallback)
	email.Subject = fmt.Sprintf("New message from %s", senderName)
	return email
}

// BuildCaseStatusEmail builds the applicant status-change notification
func BuildCaseStatusEmail(cfg *config.Config, toEmail, name, caseID, status string) *Email {
	data := map[string]string{
		"Name":   name,
		"CaseID": caseID,
		"Status": status,
		"AppURL": cfg.AppURL,
	}
	fallback := fmt.Sprintf("Assalamu alaikum %s, your zakat request %s is now %s.", name, caseID, status)
	email := buildEmailWithFallback("case_status", data, toEmail, fallback)
	email.Subject = fmt.Sprintf("Update on your zakat request %s", caseID)
	return email
}

// BuildAssignmentEmail builds the staff assignment notification
func BuildAssignmentEmail(cfg *config.Config, toEmail, name, caseID string) *Email {
	data := map[string]string{
		"Name":   name,
		"CaseID": caseID,
		"AppURL": cfg.AppURL,
	}
	fallback := fmt.Sprintf("%s, case %s has been assigned to you.", name, caseID)
	email := buildEmailWithFallback("assignment", data, toEmail, fallback)
	email.Subject = fmt.Sprintf("Case %s assigned to you", caseID)
	return email
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	// Validate configuration
	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %s (id: %s)", strings.Join(email.To, ", "), sent.Id)
	return nil
}

// logEmailToConsole prints the email instead of delivering it
func logEmailToConsole(email *Email) {
	log.Println("---------- EMAIL (test mode, not sent) ----------")
	log.Printf("To:      %s", strings.Join(email.To, ", "))
	log.Printf("Subject: %s", email.Subject)
	log.Printf("Body:    %s", email.TextBody)
	log.Println("-------------------------------------------------")
}

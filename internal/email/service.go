package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service renders the customer notification templates and hands the
// result to a Sender.
type Service struct {
	sender    Sender
	from      string
	templates *template.Template
}

// NewService parses the embedded templates. fromName may be empty.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"rupees":  FormatRupees,
		"shortID": ShortOrderID,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	from := (&mail.Address{Name: fromName, Address: fromAddress}).String()
	return &Service{sender: sender, from: from, templates: tmpl}, nil
}

func (s *Service) SendOrderConfirmation(ctx context.Context, data OrderConfirmationEmail) error {
	return s.send(ctx, data)
}

func (s *Service) SendShippingConfirmation(ctx context.Context, data ShippingConfirmationEmail) error {
	return s.send(ctx, data)
}

func (s *Service) SendRefundIssued(ctx context.Context, data RefundIssuedEmail) error {
	return s.send(ctx, data)
}

func (s *Service) send(ctx context.Context, data EmailTemplate) error {
	to := data.Recipient()
	if to == "" {
		return ErrNoRecipient
	}

	name := data.TemplateName()
	body, err := s.render(name, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	_, err = s.sender.Send(ctx, &Email{
		To:       []string{to},
		From:     s.from,
		Subject:  data.Subject(),
		HTMLBody: body,
		TextBody: generatePlainText(body),
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

// render executes the named content template and wraps it in
// email_layout.
func (s *Service) render(name string, data any) (string, error) {
	content := s.templates.Lookup(name)
	if content == nil {
		return "", ErrTemplateNotFound(name)
	}

	var inner, page bytes.Buffer
	if err := content.Execute(&inner, data); err != nil {
		return "", err
	}
	err := s.templates.ExecuteTemplate(&page, "email_layout", map[string]any{
		"Content": template.HTML(inner.String()),
	})
	if err != nil {
		return "", err
	}
	return page.String(), nil
}

// FormatRupees renders an amount in paise as "₹1,234.50".
func FormatRupees(paise int64) string {
	s := decimal.New(paise, -2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "₹" + b.String() + "." + frac
}

// generatePlainText derives the text/plain alternative from rendered HTML.
func generatePlainText(markup string) string {
	text := blockBreaks.Replace(markup)

	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	text = html.UnescapeString(b.String())

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// blockBreaks turns block-level closing tags into line breaks before the
// remaining markup is stripped. &nbsp; becomes a plain space so it trims.
var blockBreaks = strings.NewReplacer(
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"</p>", "\n\n", "</div>", "\n", "</tr>", "\n", "</li>", "\n",
	"</h1>", "\n\n", "</h2>", "\n\n", "</h3>", "\n\n",
	"&nbsp;", " ",
)

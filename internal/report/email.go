package report

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/model"
)

// EmailAction selects which outreach template to render.
type EmailAction string

const (
	EmailVerification EmailAction = "verification"
	EmailDiscrepancy  EmailAction = "discrepancy"
	EmailNotification EmailAction = "notification"
)

// Email is a rendered outreach message.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type emailData struct {
	Provider      model.Provider
	Discrepancies []model.FieldValidation
}

func orNA(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

var emailFuncs = template.FuncMap{
	"orNot":      func(s string) string { return orNA(s, "Not specified") },
	"orProvided": func(s string) string { return orNA(s, "Not provided") },
}

var verificationTmpl = template.Must(template.New("verification").Funcs(emailFuncs).Parse(`Dear Dr. {{.Provider.LastName}},

We are reaching out to verify and update your provider information in our directory.

Please review the following information and confirm its accuracy:

Name: {{.Provider.FullName}}
Specialty: {{orNot .Provider.Specialty}}
Practice Name: {{orNot .Provider.PracticeName}}
Phone: {{orProvided .Provider.Phone}}
Email: {{orProvided .Provider.Email}}
Address: {{.Provider.AddressLine1}}, {{.Provider.City}}, {{.Provider.State}} {{.Provider.ZipCode}}

If any information is incorrect or needs updating, please reply to this email with the corrections.

Thank you for your cooperation.

Best regards,
Provider Directory Management Team
`))

var discrepancyTmpl = template.Must(template.New("discrepancy").Parse(`Dear Dr. {{.Provider.LastName}},

We have identified discrepancies in your provider directory information that require your attention.

Please review and confirm the following information:
{{range .Discrepancies}}
  - {{.FieldName}}: {{.DiscrepancyReason}}
{{- end}}

Please contact us at your earliest convenience to resolve these discrepancies.

Thank you,
Provider Directory Management Team
`))

var notificationTmpl = template.Must(template.New("notification").Parse(`Dear Dr. {{.Provider.LastName}},

This is a notification regarding your provider directory information.

Thank you,
Provider Directory Management Team
`))

// BuildEmail renders the outreach email for a provider. Discrepancies are
// only used by the discrepancy template.
func BuildEmail(p model.Provider, action EmailAction, discrepancies []model.FieldValidation) (*Email, error) {
	var (
		tmpl    *template.Template
		subject string
	)
	switch action {
	case EmailVerification:
		tmpl = verificationTmpl
		subject = "Provider Information Verification Request - " + p.FullName()
	case EmailDiscrepancy:
		tmpl = discrepancyTmpl
		subject = "Action Required: Provider Information Discrepancy - " + p.FullName()
	case EmailNotification:
		tmpl = notificationTmpl
		subject = "Provider Directory Update - " + p.FullName()
	default:
		return nil, eris.Errorf("report: unknown email action %q", action)
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, emailData{Provider: p, Discrepancies: discrepancies}); err != nil {
		return nil, eris.Wrapf(err, "report: render %s email", action)
	}

	to := p.Email
	if to == "" {
		to = "email_not_available@example.com"
	}
	return &Email{To: to, Subject: subject, Body: body.String()}, nil
}

package email

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// RentalNotice describes a rental change for the counterpart's inbox.
type RentalNotice struct {
	AppName       string
	RecipientName string
	RecipientMail string
	Topic         string
	CarTitle      string
	OtherParty    string
	Status        string
	StartDate     time.Time
	EndDate       time.Time
	TotalPrice    float64
}

type rentalTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustRentalTemplate(subject, body string) rentalTemplate {
	return rentalTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Funcs(template.FuncMap{"day": formatDay}).Parse(body)),
	}
}

func formatDay(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006")
}

// Topics of rental emails.
const (
	TopicRentalRequested = "rental_requested"
	TopicRentalStatus    = "rental_status"
	TopicRentalExpired   = "rental_expired"
)

var rentalTemplates = map[string]rentalTemplate{
	TopicRentalRequested: mustRentalTemplate(
		`{{.AppName}}: new rental request for {{.CarTitle}}`,
		`Hi {{.RecipientName}},

{{.OtherParty}} wants to rent your {{.CarTitle}} from {{day .StartDate}} to {{day .EndDate}} for {{printf "%.2f" .TotalPrice}}.
Open {{.AppName}} to approve or reject the request.
`),
	TopicRentalStatus: mustRentalTemplate(
		`{{.AppName}}: rental of {{.CarTitle}} is {{.Status}}`,
		`Hi {{.RecipientName}},

The rental of {{.CarTitle}} from {{day .StartDate}} to {{day .EndDate}} is now {{.Status}} ({{.OtherParty}}).
`),
	TopicRentalExpired: mustRentalTemplate(
		`{{.AppName}}: rental request for {{.CarTitle}} expired`,
		`Hi {{.RecipientName}},

Your request to rent {{.CarTitle}} from {{day .StartDate}} was not answered before the start date and has been cancelled.
`),
}

// BuildRentalMessage renders the email for a rental notice.
func BuildRentalMessage(n RentalNotice) (Message, error) {
	tmpl, ok := rentalTemplates[n.Topic]
	if !ok {
		return Message{}, fmt.Errorf("unknown rental email topic %q", n.Topic)
	}
	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, n); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, n); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{
		To:      []string{n.RecipientMail},
		Subject: subject.String(),
		Topic:   n.Topic,
		Body:    body.String(),
	}, nil
}

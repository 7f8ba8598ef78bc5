package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"ecommerce/pkg/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Queue accepts messages for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

type Sender interface {
	Send(msg Message) error
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "render %s", name)
	}
	return buf.String(), nil
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func OtpMessage(e model.OtpIssued, validFor time.Duration) (Message, error) {
	subject, intro := "Confirm your email", "Use this code to confirm your email address."
	if e.Purpose == model.ResetPassword {
		subject, intro = "Reset your password", "Use this code to reset your password."
	}
	html, err := render("otp.html", map[string]interface{}{
		"Name":     e.Name,
		"Intro":    intro,
		"Code":     e.Code,
		"ValidFor": validFor.String(),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: e.Email, Subject: subject, HTML: html}, nil
}

func OrderCreatedMessage(e model.OrderCreated) (Message, error) {
	html, err := render("order_created.html", map[string]interface{}{
		"OrderID": e.OrderID.Hex(),
		"Status":  e.Status,
		"Total":   formatCents(e.TotalCents),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: e.Email, Subject: fmt.Sprintf("Order %s created", e.OrderID.Hex()), HTML: html}, nil
}

func PaymentReminderMessage(e model.PaymentReminderDue) (Message, error) {
	html, err := render("payment_reminder.html", map[string]interface{}{
		"Name":    e.Name,
		"OrderID": e.OrderID.Hex(),
		"Total":   formatCents(e.TotalCents),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: e.Email, Subject: "Your order is waiting for payment", HTML: html}, nil
}

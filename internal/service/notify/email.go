package notify

import (
	"context"

	"TurtleDesk/internal/domain/models"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends alerts over SMTP.
type Email struct {
	sender mailSender
	from   string
	to     []string
}

func NewEmail(host string, port int, username, password, from string, to []string) *Email {
	if from == "" {
		from = username
	}
	return &Email{
		sender: gomail.NewDialer(host, port, username, password),
		from:   from,
		to:     to,
	}
}

func (e *Email) Channel() string { return "email" }

func (e *Email) Notify(ctx context.Context, r *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", Subject(r))
	m.SetBody("text/plain", Body(r))
	return e.sender.DialAndSend(m)
}

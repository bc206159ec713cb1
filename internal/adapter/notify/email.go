package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends operator notifications over SMTP
type EmailNotifier struct {
	cfg  SMTPConfig
	log  logrus.FieldLogger
	send func(e *email.Email) error
}

// NewEmailNotifier creates a notifier that relays through cfg.Host
func NewEmailNotifier(cfg SMTPConfig, log logrus.FieldLogger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, log: log}
	n.send = n.sendSMTP
	return n
}

// CardBlocked tells operators that a request blocked a card.
// Only the masked number leaves the process.
func (n *EmailNotifier) CardBlocked(ctx context.Context, card *domain.Card, request *domain.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := n.cardBlockedMessage(card, request)
	if err := n.send(e); err != nil {
		n.log.WithError(err).WithField("card_id", card.ID.String()).Error("failed to send card blocked email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"card_id": card.ID.String(),
		"subject": e.Subject,
	}).Info("email sent")
	return nil
}

func (n *EmailNotifier) cardBlockedMessage(card *domain.Card, request *domain.Request) *email.Email {
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To
	e.Subject = fmt.Sprintf("Card %s blocked", card.MaskedNumber())

	body := fmt.Sprintf("Card %s has been blocked.\n\n", card.MaskedNumber())
	body += fmt.Sprintf(
		"Request: %s\n"+
			"Requested by: %s\n"+
			"Operation: %s\n"+
			"Filed at: %s\n",
		request.ID, request.RequestorID, request.Operation, request.CreatedAt.UTC().Format(time.RFC3339),
	)
	body += "\nBank Service"
	e.Text = []byte(body)
	return e
}

func (n *EmailNotifier) sendSMTP(e *email.Email) error {
	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	return e.Send(addr, auth)
}

// Nop discards every notification
type Nop struct{}

func (Nop) CardBlocked(context.Context, *domain.Card, *domain.Request) error { return nil }

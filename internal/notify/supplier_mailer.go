package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/pkg/config"
)

// SupplierMailer asks a supplier to confirm or decline a reserved delivery
// slot after an admin creates or changes their rule.
type SupplierMailer struct {
	cfg config.MailConfig
	log *logrus.Logger
}

func NewSupplierMailer(cfg config.MailConfig, log *logrus.Logger) *SupplierMailer {
	return &SupplierMailer{cfg: cfg, log: log}
}

// NotifyReservation emails the rule's delivery address. Without an API key
// (local runs) the mail is logged and skipped; reservation creation must not
// fail because mail is unconfigured.
func (m *SupplierMailer) NotifyReservation(ctx context.Context, rule models.SupplierRule) error {
	subject, body := reservationMessage(rule)

	if m.cfg.SendGridAPIKey == "" {
		m.log.WithFields(logrus.Fields{
			"to":      rule.DeliveryEmail,
			"subject": subject,
		}).Info("sendgrid api key not set, skipping supplier notification")
		return nil
	}
	if rule.DeliveryEmail == "" {
		return fmt.Errorf("supplier rule %d has no delivery email", rule.ID)
	}

	from := mail.NewEmail(m.cfg.FromName, m.cfg.FromAddress)
	to := mail.NewEmail(rule.SupplierName, rule.DeliveryEmail)
	message := mail.NewSingleEmail(from, subject, to, body, fmt.Sprintf("<pre>%s</pre>", body))

	client := sendgrid.NewSendClient(m.cfg.SendGridAPIKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	m.log.WithFields(logrus.Fields{
		"to":     rule.DeliveryEmail,
		"status": resp.StatusCode,
	}).Info("supplier reservation notification sent")
	return nil
}

func reservationMessage(rule models.SupplierRule) (subject, body string) {
	subject = fmt.Sprintf("Reserved delivery slot for %s on %ss", rule.SupplierName, rule.Weekday)
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"A delivery slot of %d units has been reserved for you every %s.\n"+
			"Please reply to confirm or decline this reservation. Unconfirmed\n"+
			"reservations may be released back to the shared pool.\n\n"+
			"Yard bookings",
		rule.SupplierName, rule.AllocatedCapacity, rule.Weekday,
	)
	return subject, body
}

package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/atelier-mirabelle/api/internal/domain"
)

// emailSender narrows the Resend client surface used by the mailer so tests
// can substitute a stub.
type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailerDeps wires the mailer dependencies.
type ResendMailerDeps struct {
	Sender emailSender
	// From is the sender address, e.g. "Atelier Mirabelle <commandes@atelier-mirabelle.fr>".
	From string
	// ReplyTo, when set, is attached to every outgoing email.
	ReplyTo string
	// AdminAddress, when set, receives a copy of payment confirmations.
	AdminAddress string
	Logger       *zap.Logger
}

// ResendMailer sends lifecycle notification emails through Resend.
type ResendMailer struct {
	sender       emailSender
	from         string
	replyTo      string
	adminAddress string
	logger       *zap.Logger
}

// NewResendMailer constructs the mailer from a Resend client.
func NewResendMailer(client *resend.Client, deps ResendMailerDeps) (*ResendMailer, error) {
	if deps.Sender == nil {
		if client == nil {
			return nil, errors.New("notifications: resend client is required")
		}
		deps.Sender = client.Emails
	}
	if strings.TrimSpace(deps.From) == "" {
		return nil, errors.New("notifications: from address is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendMailer{
		sender:       deps.Sender,
		from:         deps.From,
		replyTo:      deps.ReplyTo,
		adminAddress: strings.TrimSpace(deps.AdminAddress),
		logger:       logger,
	}, nil
}

// SendPaymentLink delivers a checkout link for an order or illustration payment.
func (m *ResendMailer) SendPaymentLink(ctx context.Context, order domain.Order, payment domain.OrderPayment) error {
	if payment.PaymentLink == "" {
		return fmt.Errorf("notifications: payment %s has no payment link", payment.ID)
	}

	var subject, intro string
	switch payment.Kind {
	case domain.PaymentKindIllustrationDeposit:
		subject = fmt.Sprintf("Commande %s : acompte pour votre illustration", order.Reference)
		intro = "Pour lancer votre illustration, merci de régler l'acompte via le lien ci-dessous."
	case domain.PaymentKindIllustrationFinal:
		subject = fmt.Sprintf("Commande %s : solde de votre illustration", order.Reference)
		intro = "Votre illustration est prête. Merci de régler le solde via le lien ci-dessous."
	default:
		subject = fmt.Sprintf("Commande %s : lien de paiement", order.Reference)
		intro = "Merci de finaliser votre commande via le lien de paiement ci-dessous."
	}

	body := renderBody(order.Customer.Name, []string{
		intro,
		fmt.Sprintf("Montant : %s", payment.Amount),
	}, payment.PaymentLink, "Payer maintenant")

	return m.send(ctx, "payment_link", []string{order.Customer.Email}, subject, body)
}

// SendPaymentConfirmation confirms a completed payment, copying the admin address.
func (m *ResendMailer) SendPaymentConfirmation(ctx context.Context, order domain.Order, payment domain.OrderPayment) error {
	subject := fmt.Sprintf("Commande %s : paiement reçu", order.Reference)
	body := renderBody(order.Customer.Name, []string{
		"Nous avons bien reçu votre paiement.",
		fmt.Sprintf("Montant : %s", payment.Amount),
		"Nous vous tiendrons informé de l'avancement de votre commande.",
	}, "", "")

	to := []string{order.Customer.Email}
	if m.adminAddress != "" {
		to = append(to, m.adminAddress)
	}
	return m.send(ctx, "payment_confirmation", to, subject, body)
}

// SendShippingNotification informs the customer that the order shipped.
func (m *ResendMailer) SendShippingNotification(ctx context.Context, order domain.Order) error {
	subject := fmt.Sprintf("Commande %s expédiée", order.Reference)
	lines := []string{"Votre commande vient d'être expédiée."}
	if order.TrackingNumber != "" {
		lines = append(lines, fmt.Sprintf("Numéro de suivi : %s", order.TrackingNumber))
	}
	body := renderBody(order.Customer.Name, lines, "", "")
	return m.send(ctx, "shipping", []string{order.Customer.Email}, subject, body)
}

// SendCancellationNotice informs the customer of a cancellation.
func (m *ResendMailer) SendCancellationNotice(ctx context.Context, order domain.Order, refunded bool) error {
	subject := fmt.Sprintf("Commande %s annulée", order.Reference)
	lines := []string{"Votre commande a été annulée."}
	if order.CancelReason != nil && *order.CancelReason != "" {
		lines = append(lines, fmt.Sprintf("Motif : %s", *order.CancelReason))
	}
	if refunded {
		lines = append(lines, "Le remboursement a été initié et apparaîtra sur votre compte sous quelques jours.")
	}
	body := renderBody(order.Customer.Name, lines, "", "")
	return m.send(ctx, "cancellation", []string{order.Customer.Email}, subject, body)
}

// SendIllustrationUpdate informs the customer that an illustration reached a
// state without a dedicated template.
func (m *ResendMailer) SendIllustrationUpdate(ctx context.Context, order domain.Order, illustration domain.Illustration) error {
	var subject string
	var lines []string
	switch illustration.Status {
	case domain.IllustrationStatusCompleted:
		subject = fmt.Sprintf("Commande %s : votre illustration est terminée", order.Reference)
		lines = []string{"Votre illustration est terminée. Merci pour votre confiance !"}
	case domain.IllustrationStatusClientReview:
		subject = fmt.Sprintf("Commande %s : un brouillon vous attend", order.Reference)
		lines = []string{"Un brouillon de votre illustration est prêt et attend votre retour."}
	default:
		subject = fmt.Sprintf("Commande %s : mise à jour de votre illustration", order.Reference)
		lines = []string{fmt.Sprintf("Votre illustration est passée à l'étape %s.", illustration.Status)}
	}
	body := renderBody(order.Customer.Name, lines, "", "")
	return m.send(ctx, "illustration_update", []string{order.Customer.Email}, subject, body)
}

func (m *ResendMailer) send(ctx context.Context, kind string, to []string, subject, body string) error {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return errors.New("notifications: no recipient address")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	}
	if m.replyTo != "" {
		params.ReplyTo = m.replyTo
	}

	if _, err := m.sender.Send(params); err != nil {
		m.logger.Error("notification send failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return fmt.Errorf("notifications: send %s: %w", kind, err)
	}

	m.logger.Info("notification sent", zap.String("kind", kind))
	return nil
}

func renderBody(name string, paragraphs []string, linkURL, linkLabel string) string {
	var b strings.Builder
	b.WriteString("<div style=\"font-family: Georgia, serif; max-width: 600px; margin: 0 auto; color: #3a3a3a;\">")
	greeting := "Bonjour,"
	if strings.TrimSpace(name) != "" {
		greeting = fmt.Sprintf("Bonjour %s,", html.EscapeString(name))
	}
	fmt.Fprintf(&b, "<p>%s</p>", greeting)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(p))
	}
	if linkURL != "" {
		fmt.Fprintf(&b,
			"<p style=\"text-align: center;\"><a href=%q style=\"display: inline-block; padding: 12px 24px; background-color: #9a6a8f; color: #ffffff; text-decoration: none; border-radius: 4px;\">%s</a></p>",
			linkURL, html.EscapeString(linkLabel))
	}
	b.WriteString("<p>L'équipe Atelier Mirabelle</p></div>")
	return b.String()
}

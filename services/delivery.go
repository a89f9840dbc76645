package services

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/utils"
)

var ErrChannelUnavailable = errors.New("no sender configured for channel")

const codeSubject = "Your verification code"

// Sender identifies the organization on outgoing messages.
type Sender struct {
	FromEmail string
	FromName  string
}

func codeBodies(code, displayName string, minutes int) (plain, htmlBody string) {
	greeting := "Hello"
	if displayName != "" {
		greeting = "Hello " + displayName
	}
	plain = fmt.Sprintf("%s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not request this, ignore this email.", greeting, code, minutes)
	htmlBody = fmt.Sprintf(`
		<html>
		<body>
			<p>%s,</p>
			<p>Your verification code is: <strong>%s</strong></p>
			<p>It expires in %d minutes.</p>
			<p>If you did not request this, ignore this email.</p>
		</body>
		</html>
	`, html.EscapeString(greeting), code, minutes)
	return plain, htmlBody
}

// SMTPEmailSender delivers codes over SMTP.
type SMTPEmailSender struct {
	dialer  *gomail.Dialer
	from    Sender
	minutes int
}

func NewSMTPEmailSender(host string, port int, user, pass string, from Sender, minutes int) *SMTPEmailSender {
	return &SMTPEmailSender{
		dialer:  gomail.NewDialer(host, port, user, pass),
		from:    from,
		minutes: minutes,
	}
}

func (s *SMTPEmailSender) SendCode(ctx context.Context, _ models.Channel, destination, code, displayName string) error {
	plain, body := codeBodies(code, displayName, s.minutes)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from.FromEmail, s.from.FromName)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", codeSubject)
	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendGridEmailSender delivers codes through the SendGrid API.
type SendGridEmailSender struct {
	client  *sendgrid.Client
	from    Sender
	minutes int
}

func NewSendGridEmailSender(apiKey string, from Sender, minutes int) *SendGridEmailSender {
	return &SendGridEmailSender{
		client:  sendgrid.NewSendClient(apiKey),
		from:    from,
		minutes: minutes,
	}
}

func (s *SendGridEmailSender) SendCode(ctx context.Context, _ models.Channel, destination, code, displayName string) error {
	plain, body := codeBodies(code, displayName, s.minutes)

	message := mail.NewSingleEmail(
		mail.NewEmail(s.from.FromName, s.from.FromEmail),
		codeSubject,
		mail.NewEmail(displayName, destination),
		plain,
		body,
	)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded with status %d", resp.StatusCode)
	}
	return nil
}

// TwilioSMSSender delivers codes by SMS.
type TwilioSMSSender struct {
	client  *twilio.RestClient
	from    string
	minutes int
}

func NewTwilioSMSSender(accountSID, authToken, fromPhone string, minutes int) *TwilioSMSSender {
	return &TwilioSMSSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:    fromPhone,
		minutes: minutes,
	}
}

func (s *TwilioSMSSender) SendCode(ctx context.Context, _ models.Channel, destination, code, _ string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, s.minutes))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms via twilio: %w", err)
	}
	return nil
}

// LogSender writes codes to the log. Only wired in development when no
// provider is configured.
type LogSender struct{}

func (LogSender) SendCode(_ context.Context, channel models.Channel, destination, code, _ string) error {
	utils.Logger.WithField("channel", channel).Debugf("Verification code for %s: %s", destination, code)
	return nil
}

// ChannelDispatcher routes a code to the sender for its channel.
type ChannelDispatcher struct {
	senders map[models.Channel]CodeSender
}

func NewChannelDispatcher(email, sms CodeSender) *ChannelDispatcher {
	d := &ChannelDispatcher{senders: make(map[models.Channel]CodeSender)}
	if email != nil {
		d.senders[models.ChannelEmail] = email
	}
	if sms != nil {
		d.senders[models.ChannelPhone] = sms
	}
	return d
}

func (d *ChannelDispatcher) SendCode(ctx context.Context, channel models.Channel, destination, code, displayName string) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelUnavailable, channel)
	}
	return sender.SendCode(ctx, channel, destination, code, displayName)
}

package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailService sends steward notification mail (report ready, awaiting
// approval). Failures are logged by callers, never fatal.
type EmailService struct {
	dialer     *gomail.Dialer
	sender     string
	senderName string
}

func NewEmailService(host string, port int, email, password, senderName string) *EmailService {
	return &EmailService{
		dialer:     gomail.NewDialer(host, port, email, password),
		sender:     email,
		senderName: senderName,
	}
}

func (s *EmailService) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.sender, s.senderName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendReportReady notifies the session owner that the synthesis pipeline
// finished and the intelligence brief is available.
func (s *EmailService) SendReportReady(to, productName, sessionId string) error {
	body := fmt.Sprintf(`<p>The research pipeline for <b>%s</b> has completed.</p>
<p>Session <code>%s</code> now has its final reports and intelligence brief attached.</p>`, productName, sessionId)
	return s.Send(to, fmt.Sprintf("Research complete: %s", productName), body)
}

package mail

import (
	"fmt"
	"net/smtp"
)

type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	Host string
	Port string
	From string
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := s.Host + ":" + s.Port
	msg := "From: " + s.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body
	return smtp.SendMail(addr, nil, s.From, []string{to}, []byte(msg))
}

func SignupSubject() string { return "Confirm your email" }

func SignupBody(code string) string {
	return fmt.Sprintf("Your confirmation code is %s.\nIt is valid for 15 minutes.", code)
}

func ResetSubject() string { return "Reset your password" }

func ResetBody(code string) string {
	return fmt.Sprintf("Your password reset code is %s.\nIt is valid for 15 minutes.\nIf you did not request this, ignore this message.", code)
}

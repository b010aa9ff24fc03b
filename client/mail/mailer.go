package mail

import (
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

var (
	SendFunc = Send

	activeDialer *gomail.Dialer
	fromAddress  string
)

// Bootstrap SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, SMTP_FROM
func Bootstrap() {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	activeDialer = gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
	fromAddress = os.Getenv("SMTP_FROM")
	if fromAddress == "" {
		fromAddress = "no-reply@staffhub.local"
	}
}

func Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", fromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return activeDialer.DialAndSend(m)
}

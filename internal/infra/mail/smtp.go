package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"ecshop/internal/usecase"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// 決済完了メール（テキストのみ）
type SMTPMailer struct {
	host string
	port string
	from string
	send sendFunc
}

func NewSMTPMailer(host, port, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, from: from, send: smtp.SendMail}
}

func (m *SMTPMailer) SendPaymentReceipt(ctx context.Context, to string, r usecase.PaymentReceipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("Payment received for order #%d", r.OrderID)
	msg := buildMessage(m.from, to, subject, receiptBody(r))

	if err := m.send(net.JoinHostPort(m.host, m.port), nil, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	return nil
}

func receiptBody(r usecase.PaymentReceipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your payment.\r\n\r\n")
	fmt.Fprintf(&b, "Order: #%d\r\n", r.OrderID)
	fmt.Fprintf(&b, "Amount: %s %s\r\n", r.TotalAmount.StringFixed(2), strings.ToUpper(r.Currency))
	return b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body,
	))
}

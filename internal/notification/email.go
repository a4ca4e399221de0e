// Package notification отправляет покупателю письмо с подтверждением оплаты заказа.
package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookstore-system/internal/model"
)

// Sender отправляет письма через SMTP.
type Sender struct {
	host     string
	port     int
	user     string
	password string
	logger   *zap.Logger

	// sendMail подменяется в тестах.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender создаёт отправитель писем с указанными SMTP-реквизитами.
func NewSender(host string, port int, user, password string, logger *zap.Logger) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// SendOrderConfirmation отправляет письмо с подтверждением оплаченного заказа.
// Временные сбои SMTP повторяются с нарастающей задержкой.
func (s *Sender) SendOrderConfirmation(ctx context.Context, order *model.Order) error {
	if s.host == "" || s.user == "" {
		return fmt.Errorf("notification sender not configured")
	}

	msg := s.buildMessage(order)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.sendMail(addr, auth, s.user, []string{order.Buyer.Email}, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	s.logger.Info("confirmation email sent",
		zap.String("orderID", order.OrderID),
		zap.String("email", order.Buyer.Email),
	)
	return nil
}

func (s *Sender) buildMessage(order *model.Order) []byte {
	deliveryDate := ""
	if order.DeliveryDate != nil {
		deliveryDate = order.DeliveryDate.Format("Monday, 2 January 2006")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.user)
	fmt.Fprintf(&b, "To: %s\r\n", order.Buyer.Email)
	fmt.Fprintf(&b, "Subject: Order Confirmation - %s\r\n", order.OrderID)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", order.Buyer.FullName)
	b.WriteString("Thank you for your purchase! Your order has been confirmed.\r\n\r\n")
	fmt.Fprintf(&b, "Order ID: %s\r\n", order.OrderID)
	fmt.Fprintf(&b, "Book: %s\r\n", order.BookTitle)
	fmt.Fprintf(&b, "Amount: Rs. %d\r\n", order.Amount)
	fmt.Fprintf(&b, "Delivery Charges: Rs. %d\r\n", order.DeliveryCharges)
	fmt.Fprintf(&b, "Total Amount: Rs. %d\r\n", order.TotalAmount)
	fmt.Fprintf(&b, "Payment ID: %s\r\n\r\n", order.PaymentID)
	fmt.Fprintf(&b, "Expected Delivery: %s\r\n", deliveryDate)
	fmt.Fprintf(&b, "Delivery Address: %s\r\n", order.Buyer.Address)
	fmt.Fprintf(&b, "PIN: %s\r\n\r\n", order.Buyer.Pincode)
	b.WriteString("Best regards,\r\nBook Store Team\r\n")

	return []byte(b.String())
}

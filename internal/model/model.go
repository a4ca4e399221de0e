// Package model содержит доменные сущности книжного магазина.
package model

import "time"

// Book описывает книгу каталога.
type Book struct {
	ID          int64
	Title       string
	Description string
	Author      string
	Image       string
	Price       int64
	Stock       int64
}

// BuyerDetails содержит данные покупателя, зафиксированные в момент оформления заказа.
type BuyerDetails struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	Pincode  string `json:"pincode"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// Order описывает заказ на одну книгу. Суммы хранятся в целых рупиях.
type Order struct {
	ID               int64
	OrderID          string
	BookID           int64
	Buyer            BuyerDetails
	Amount           int64
	DeliveryCharges  int64
	TotalAmount      int64
	PaymentStatus    PaymentStatus
	RazorpayOrderID  string
	PaymentID        string
	PaymentSignature string
	DeliveryDate     *time.Time
	CreatedAt        time.Time

	// Поля книги заполняются при выборке заказа вместе с каталогом.
	BookTitle  string
	BookAuthor string
	BookImage  string
}

// PaymentInit содержит данные, необходимые клиенту для открытия платёжной формы шлюза.
type PaymentInit struct {
	RazorpayOrderID string `json:"razorpayOrderId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	KeyID           string `json:"keyId"`
}

// PaymentConfirmation содержит результат успешной проверки оплаты.
type PaymentConfirmation struct {
	OrderID      string    `json:"orderId"`
	PaymentID    string    `json:"paymentId"`
	DeliveryDate time.Time `json:"deliveryDate"`
	BookTitle    string    `json:"bookTitle"`
	TotalAmount  int64     `json:"totalAmount"`
}

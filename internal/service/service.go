// Package service реализует бизнес-логику книжного магазина:
// создание заказов и сверку оплат с платёжным шлюзом.
package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookstore-system/internal/gateway"
	"github.com/mmeshcher/bookstore-system/internal/model"
	"github.com/mmeshcher/bookstore-system/internal/repository"
)

// DeliveryCharges — фиксированная стоимость доставки в рупиях.
const DeliveryCharges = 50

const orderIDAttempts = 3

// ErrOutOfStock возвращается при попытке заказать книгу с нулевым остатком.
var (
	ErrOutOfStock = errors.New("book out of stock")
	// ErrInvalidSignature возвращается при несовпадении подписи callback-а шлюза.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrMissingBuyerDetails возвращается, если обязательные данные покупателя не заполнены.
	ErrMissingBuyerDetails = errors.New("missing buyer details")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetBookByID(ctx context.Context, id int64) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	SetRazorpayOrderID(ctx context.Context, orderID, razorpayOrderID string) error
	MarkOrderPaid(ctx context.Context, orderID, paymentID, signature string, deliveryDate time.Time) (*repository.PaymentResult, error)
	MarkOrderFailed(ctx context.Context, orderID string) error
}

// Gateway описывает контракт платёжного шлюза.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (*gateway.Order, error)
	VerifySignature(razorpayOrderID, razorpayPaymentID, signature string) bool
}

// Notifier отправляет покупателю подтверждение оплаченного заказа.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *model.Order) error
}

// Service содержит бизнес-логику книжного магазина.
type Service struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
	logger   *zap.Logger
}

// NewService создаёт сервис с указанным репозиторием, клиентом шлюза и отправителем уведомлений.
// Отправитель может быть nil, тогда уведомления не отправляются.
func NewService(repo Repository, gw Gateway, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		gateway:  gw,
		notifier: notifier,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// GetBook возвращает книгу каталога по идентификатору.
func (s *Service) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	return s.repo.GetBookByID(ctx, id)
}

// ListBooks возвращает каталог книг.
func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

// CreateOrder создаёт новый заказ со статусом Pending. Цена книги фиксируется
// в заказе в момент создания; остаток книги здесь только проверяется,
// списание происходит при подтверждении оплаты.
func (s *Service) CreateOrder(ctx context.Context, bookID int64, buyer model.BuyerDetails) (*model.Order, error) {
	if hasEmptyField(buyer) {
		return nil, ErrMissingBuyerDetails
	}

	book, err := s.repo.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if book.Stock < 1 {
		return nil, ErrOutOfStock
	}

	order := &model.Order{
		BookID:          book.ID,
		Buyer:           buyer,
		Amount:          book.Price,
		DeliveryCharges: DeliveryCharges,
		TotalAmount:     book.Price + DeliveryCharges,
		PaymentStatus:   model.PaymentStatusPending,
		BookTitle:       book.Title,
		BookAuthor:      book.Author,
		BookImage:       book.Image,
	}

	// Уникальность идентификатора обеспечивает ограничение в БД,
	// при конфликте генерируется новый.
	for attempt := 0; attempt < orderIDAttempts; attempt++ {
		order.OrderID = generateOrderID()
		err = s.repo.CreateOrder(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderID) {
			return nil, err
		}
	}

	return nil, err
}

func generateOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORD" + time.Now().UTC().Format("20060102150405") + suffix
}

func hasEmptyField(buyer model.BuyerDetails) bool {
	fields := []string{buyer.FullName, buyer.Address, buyer.Pincode, buyer.Mobile, buyer.Email}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

// GetOrder возвращает заказ вместе с данными книги.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.GetOrderByOrderID(ctx, orderID)
}

// ListOrders возвращает все заказы магазина.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// InitiatePayment открывает транзакцию платёжного шлюза для заказа и сохраняет
// её идентификатор. При недоступности шлюза заказ остаётся без изменений.
func (s *Service) InitiatePayment(ctx context.Context, orderID string) (*model.PaymentInit, error) {
	order, err := s.repo.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Шлюз принимает сумму в минорных единицах валюты.
	gwOrder, err := s.gateway.CreateOrder(ctx, order.TotalAmount*100, order.OrderID, map[string]string{
		"orderId":   order.OrderID,
		"bookTitle": order.BookTitle,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetRazorpayOrderID(ctx, order.OrderID, gwOrder.ID); err != nil {
		return nil, err
	}

	return &model.PaymentInit{
		RazorpayOrderID: gwOrder.ID,
		Amount:          gwOrder.Amount,
		Currency:        gwOrder.Currency,
		KeyID:           s.gateway.KeyID(),
	}, nil
}

// ConfirmPayment проверяет подпись callback-а шлюза и переводит заказ в статус
// Paid ровно один раз. Повторный callback для уже оплаченного заказа
// возвращает сохранённый результат без повторного списания остатка.
func (s *Service) ConfirmPayment(ctx context.Context, razorpayOrderID, razorpayPaymentID, signature, orderID string) (*model.PaymentConfirmation, error) {
	if !s.gateway.VerifySignature(razorpayOrderID, razorpayPaymentID, signature) {
		return nil, ErrInvalidSignature
	}

	deliveryDate := time.Now().AddDate(0, 0, 5+rand.Intn(3))

	res, err := s.repo.MarkOrderPaid(ctx, orderID, razorpayPaymentID, signature, deliveryDate)
	if err != nil {
		return nil, err
	}

	order := res.Order

	if res.Transitioned {
		if !res.StockDecremented {
			// Деньги уже приняты шлюзом, заказ исполняется как предзаказ.
			s.logger.Warn("stock exhausted for paid order",
				zap.String("orderID", order.OrderID),
				zap.Int64("bookID", order.BookID),
			)
		}
		s.dispatchNotification(order)
	} else if order.PaymentID != razorpayPaymentID {
		s.logger.Warn("duplicate payment callback with different payment id",
			zap.String("orderID", order.OrderID),
			zap.String("storedPaymentID", order.PaymentID),
			zap.String("callbackPaymentID", razorpayPaymentID),
		)
	}

	confirmation := &model.PaymentConfirmation{
		OrderID:     order.OrderID,
		PaymentID:   order.PaymentID,
		BookTitle:   order.BookTitle,
		TotalAmount: order.TotalAmount,
	}
	if order.DeliveryDate != nil {
		confirmation.DeliveryDate = *order.DeliveryDate
	}

	return confirmation, nil
}

// dispatchNotification отправляет подтверждение в отдельной горутине.
// Сбой уведомления не влияет на результат подтверждения оплаты.
func (s *Service) dispatchNotification(order *model.Order) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
			s.logger.Error("send order confirmation failed",
				zap.Error(err),
				zap.String("orderID", order.OrderID),
			)
		}
	}()
}

// RecordPaymentFailure фиксирует сообщённый клиентом сбой оплаты.
// Вызов никогда не возвращает ошибку: это вспомогательная отметка,
// не влияющая на клиентский поток.
func (s *Service) RecordPaymentFailure(ctx context.Context, orderID, reason string) {
	s.logger.Info("payment failure reported",
		zap.String("orderID", orderID),
		zap.String("reason", reason),
	)

	if err := s.repo.MarkOrderFailed(ctx, orderID); err != nil {
		s.logger.Error("mark order failed error",
			zap.Error(err),
			zap.String("orderID", orderID),
		)
	}
}

// Package handler содержит HTTP-обработчики API книжного магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookstore-system/internal/gateway"
	"github.com/mmeshcher/bookstore-system/internal/middleware"
	"github.com/mmeshcher/bookstore-system/internal/model"
	"github.com/mmeshcher/bookstore-system/internal/repository"
	"github.com/mmeshcher/bookstore-system/internal/service"
	"github.com/mmeshcher/bookstore-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	CreateOrder(ctx context.Context, bookID int64, buyer model.BuyerDetails) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	InitiatePayment(ctx context.Context, orderID string) (*model.PaymentInit, error)
	ConfirmPayment(ctx context.Context, razorpayOrderID, razorpayPaymentID, signature, orderID string) (*model.PaymentConfirmation, error)
	RecordPaymentFailure(ctx context.Context, orderID, reason string)
}

// Handler реализует HTTP-обработчики API книжного магазина.
type Handler struct {
	service   Service
	logger    *zap.Logger
	adminAuth *middleware.AdminAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, adminAuth *middleware.AdminAuth) *Handler {
	return &Handler{
		service:   s,
		logger:    logger,
		adminAuth: adminAuth,
	}
}

type bookResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Image       string `json:"image"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
}

func newBookResponse(b model.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Author:      b.Author,
		Image:       b.Image,
		Price:       b.Price,
		Stock:       b.Stock,
	}
}

// ListBooks возвращает каталог книг.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.logger.Error("list books error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]bookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, newBookResponse(b))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetBook возвращает книгу каталога по идентификатору.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get book error", zap.Error(err), zap.Int64("bookID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newBookResponse(*book)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type createOrderRequest struct {
	BookID      int64              `json:"bookId"`
	UserDetails model.BuyerDetails `json:"userDetails"`
}

type orderResponse struct {
	OrderID         string             `json:"orderId"`
	BookID          int64              `json:"bookId"`
	BookTitle       string             `json:"bookTitle"`
	BookAuthor      string             `json:"bookAuthor,omitempty"`
	BookImage       string             `json:"bookImage,omitempty"`
	UserDetails     model.BuyerDetails `json:"userDetails"`
	Amount          int64              `json:"amount"`
	DeliveryCharges int64              `json:"deliveryCharges"`
	TotalAmount     int64              `json:"totalAmount"`
	PaymentStatus   string             `json:"paymentStatus"`
	RazorpayOrderID string             `json:"razorpayOrderId,omitempty"`
	PaymentID       string             `json:"paymentId,omitempty"`
	DeliveryDate    string             `json:"deliveryDate,omitempty"`
	CreatedAt       string             `json:"createdAt"`
}

func newOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		OrderID:         o.OrderID,
		BookID:          o.BookID,
		BookTitle:       o.BookTitle,
		BookAuthor:      o.BookAuthor,
		BookImage:       o.BookImage,
		UserDetails:     o.Buyer,
		Amount:          o.Amount,
		DeliveryCharges: o.DeliveryCharges,
		TotalAmount:     o.TotalAmount,
		PaymentStatus:   string(o.PaymentStatus),
		RazorpayOrderID: o.RazorpayOrderID,
		PaymentID:       o.PaymentID,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	if o.DeliveryDate != nil {
		resp.DeliveryDate = o.DeliveryDate.Format(time.RFC3339)
	}
	return resp
}

// CreateOrder создаёт новый заказ со статусом Pending.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateBuyerDetails(req.UserDetails); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.BookID, req.UserDetails)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			http.Error(w, "book not found", http.StatusNotFound)
		case errors.Is(err, service.ErrOutOfStock):
			http.Error(w, "book out of stock", http.StatusConflict)
		case errors.Is(err, service.ErrMissingBuyerDetails):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("create order error", zap.Error(err), zap.Int64("bookID", req.BookID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newOrderResponse(order)); err != nil {
		h.logger.Error("encode order response error", zap.Error(err))
	}
}

// GetOrder возвращает заказ вместе с данными книги.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.String("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newOrderResponse(order)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// ListOrders возвращает все заказы магазина, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type paymentCreateRequest struct {
	OrderID string `json:"orderId"`
}

// CreatePayment открывает транзакцию платёжного шлюза для заказа.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.OrderID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	init, err := h.service.InitiatePayment(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, gateway.ErrUnavailable):
			h.logger.Error("payment gateway unavailable", zap.Error(err), zap.String("orderID", req.OrderID))
			http.Error(w, "payment gateway unavailable", http.StatusBadGateway)
		default:
			h.logger.Error("create payment error", zap.Error(err), zap.String("orderID", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(init); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type paymentVerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
}

// VerifyPayment проверяет подпись callback-а шлюза и подтверждает оплату заказа.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.OrderID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	confirmation, err := h.service.ConfirmPayment(r.Context(),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			h.logger.Warn("invalid payment signature",
				zap.String("orderID", req.OrderID),
				zap.String("razorpayOrderID", req.RazorpayOrderID),
			)
			http.Error(w, "invalid payment signature", http.StatusBadRequest)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		default:
			h.logger.Error("verify payment error", zap.Error(err), zap.String("orderID", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(confirmation); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type paymentFailureRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// PaymentFailed фиксирует сообщённый клиентом сбой оплаты. Всегда отвечает успехом.
func (h *Handler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req paymentFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.service.RecordPaymentFailure(r.Context(), req.OrderID, req.Reason)

	w.WriteHeader(http.StatusOK)
}

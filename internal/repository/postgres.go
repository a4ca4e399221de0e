// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/bookstore-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrBookNotFound возвращается, если книга не найдена в каталоге.
var (
	ErrBookNotFound = errors.New("book not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrderID возвращается при конфликте сгенерированного идентификатора заказа.
	ErrDuplicateOrderID = errors.New("order id already exists")
)

// PaymentResult описывает итог перевода заказа в статус Paid.
type PaymentResult struct {
	// Order — состояние заказа после выполнения операции.
	Order *model.Order
	// Transitioned — true, если именно этот вызов перевёл заказ из Pending в Paid.
	Transitioned bool
	// StockDecremented — true, если остаток книги был уменьшен этим вызовом.
	StockDecremented bool
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetBookByID возвращает книгу каталога по идентификатору.
func (r *PostgresRepository) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, description, author, image, price, stock FROM books WHERE id = $1`,
		id,
	)

	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Author, &b.Image, &b.Price, &b.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	return &b, nil
}

// ListBooks возвращает весь каталог книг.
func (r *PostgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, author, image, price, stock
		 FROM books
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Author, &b.Image, &b.Price, &b.Stock); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return books, nil
}

// CreateOrder сохраняет новый заказ. При конфликте сгенерированного идентификатора
// возвращает ErrDuplicateOrderID, чтобы вызывающая сторона могла повторить с новым.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (order_id, book_id, full_name, address, pincode, mobile, email,
		                     amount, delivery_charges, total_amount, payment_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		o.OrderID, o.BookID,
		o.Buyer.FullName, o.Buyer.Address, o.Buyer.Pincode, o.Buyer.Mobile, o.Buyer.Email,
		o.Amount, o.DeliveryCharges, o.TotalAmount, string(o.PaymentStatus),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderID, o.OrderID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const orderColumns = `o.id, o.order_id, o.book_id,
	o.full_name, o.address, o.pincode, o.mobile, o.email,
	o.amount, o.delivery_charges, o.total_amount, o.payment_status,
	COALESCE(o.razorpay_order_id, ''), COALESCE(o.payment_id, ''), COALESCE(o.payment_signature, ''),
	o.delivery_date, o.created_at,
	b.title, b.author, b.image`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderID, &o.BookID,
		&o.Buyer.FullName, &o.Buyer.Address, &o.Buyer.Pincode, &o.Buyer.Mobile, &o.Buyer.Email,
		&o.Amount, &o.DeliveryCharges, &o.TotalAmount, &status,
		&o.RazorpayOrderID, &o.PaymentID, &o.PaymentSignature,
		&o.DeliveryDate, &o.CreatedAt,
		&o.BookTitle, &o.BookAuthor, &o.BookImage,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = model.PaymentStatus(status)
	return &o, nil
}

func getOrder(ctx context.Context, q querier, orderID string) (*model.Order, error) {
	row := q.QueryRow(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o
		 JOIN books b ON b.id = o.book_id
		 WHERE o.order_id = $1`,
		orderID,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// GetOrderByOrderID возвращает заказ вместе с данными книги.
func (r *PostgresRepository) GetOrderByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return getOrder(ctx, r.pool, orderID)
}

// ListOrders возвращает все заказы, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o
		 JOIN books b ON b.id = o.book_id
		 ORDER BY o.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// SetRazorpayOrderID сохраняет идентификатор транзакции платёжного шлюза для заказа.
func (r *PostgresRepository) SetRazorpayOrderID(ctx context.Context, orderID, razorpayOrderID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET razorpay_order_id = $2, updated_at = now() WHERE order_id = $1`,
		orderID, razorpayOrderID,
	)
	if err != nil {
		return fmt.Errorf("set razorpay order id: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkOrderPaid атомарно переводит заказ в статус Paid и уменьшает остаток книги.
// Переход выполняется не более одного раза: повторный вызов для уже оплаченного
// заказа возвращает сохранённое состояние без изменения остатка. Остаток
// уменьшается только при переходе и только если он больше нуля.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, orderID, paymentID, signature string, deliveryDate time.Time) (*PaymentResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Условное обновление блокирует строку заказа: из двух конкурентных
	// callback-ов только один увидит статус, отличный от Paid.
	var bookID int64
	transitioned := true
	err = tx.QueryRow(ctx,
		`UPDATE orders
		 SET payment_status = $2, payment_id = $3, payment_signature = $4,
		     delivery_date = $5, updated_at = now()
		 WHERE order_id = $1 AND payment_status <> $2
		 RETURNING book_id`,
		orderID, string(model.PaymentStatusPaid), paymentID, signature, deliveryDate,
	).Scan(&bookID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		transitioned = false
	}

	stockDecremented := false
	if transitioned {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE books SET stock = stock - 1, updated_at = now() WHERE id = $1 AND stock > 0`,
			bookID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		stockDecremented = cmdTag.RowsAffected() == 1
	}

	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PaymentResult{
		Order:            order,
		Transitioned:     transitioned,
		StockDecremented: stockDecremented,
	}, nil
}

// MarkOrderFailed переводит заказ в статус Failed. Отсутствие заказа не является
// ошибкой, уже оплаченный заказ не понижается.
func (r *PostgresRepository) MarkOrderFailed(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now()
		 WHERE order_id = $1 AND payment_status <> $3`,
		orderID, string(model.PaymentStatusFailed), string(model.PaymentStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	return nil
}

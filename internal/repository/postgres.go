// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/posline-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrProductNotFound возвращается, если товар с указанным кодом не найден.
var (
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateProductName возвращается при попытке сохранить товар с занятым названием.
	ErrDuplicateProductName = errors.New("product name already in use")
	// ErrEmployeeNotFound возвращается, если сотрудник не найден.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
// Денежные суммы хранятся в центах как BIGINT и конвертируются во float64
// на границе репозитория.
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

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Ошибки контекста и доменные отказы не ретраим
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if errors.Is(err, model.ErrInsufficientStock) || errors.Is(err, ErrEmployeeNotFound) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

const productColumns = `code, name, kind, price, stock, days_to_expiry,
	offer_code, offer_kind, offer_percent, offer_max_units`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p             model.Product
		priceCents    int64
		offerCode     *int64
		offerKind     *string
		offerPercent  *float64
		offerMaxUnits *int
	)

	err := row.Scan(&p.Code, &p.Name, (*string)(&p.Kind), &priceCents, &p.Stock,
		&p.DaysToExpiry, &offerCode, &offerKind, &offerPercent, &offerMaxUnits)
	if err != nil {
		return nil, err
	}

	p.Price = fromCents(priceCents)

	if offerCode != nil && offerKind != nil {
		offer := model.Offer{
			Code: *offerCode,
			Kind: model.OfferKind(*offerKind),
		}
		if offerPercent != nil {
			offer.Percent = *offerPercent
		}
		if offerMaxUnits != nil {
			offer.MaxUnits = *offerMaxUnits
		}
		p.Offer = &offer
	}

	return &p, nil
}

// ListProducts возвращает каталог товаров в порядке кодов.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по коду.
func (r *PostgresRepository) GetProduct(ctx context.Context, code int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE code = $1`,
		code,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// UpdateProduct сохраняет правку товара: название, цену, остаток, срок
// годности и привязанную акцию.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	var (
		offerCode     *int64
		offerKind     *string
		offerPercent  *float64
		offerMaxUnits *int
	)
	if p.Offer != nil {
		offerCode = &p.Offer.Code
		kind := string(p.Offer.Kind)
		offerKind = &kind
		offerPercent = &p.Offer.Percent
		offerMaxUnits = &p.Offer.MaxUnits
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, price = $3, stock = $4, days_to_expiry = $5,
		     offer_code = $6, offer_kind = $7, offer_percent = $8, offer_max_units = $9
		 WHERE code = $1`,
		p.Code, p.Name, toCents(p.Price), p.Stock, p.DaysToExpiry,
		offerCode, offerKind, offerPercent, offerMaxUnits,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateProductName, p.Name)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpsertCatalogPrices обновляет названия и цены товаров по данным прайс-листа
// поставщика. Остатки этот метод не трогает: ими владеют продажи.
func (r *PostgresRepository) UpsertCatalogPrices(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range products {
		_, err := tx.Exec(ctx,
			`INSERT INTO products (code, name, kind, price, stock, days_to_expiry)
			 VALUES ($1, $2, $3, $4, 0, $5)
			 ON CONFLICT (code) DO UPDATE
			 SET name = EXCLUDED.name, price = EXCLUDED.price,
			     days_to_expiry = EXCLUDED.days_to_expiry`,
			p.Code, p.Name, string(p.Kind), toCents(p.Price), p.DaysToExpiry,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrDuplicateProductName, p.Name)
			}
			return fmt.Errorf("upsert product %d: %w", p.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetEmployeeByCode возвращает сотрудника по табельному номеру.
func (r *PostgresRepository) GetEmployeeByCode(ctx context.Context, code int64) (*model.Employee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT code, name, password_hash, shift, level, shift_pct, productivity
		 FROM employees WHERE code = $1`,
		code,
	)

	var (
		e                 model.Employee
		productivityCents int64
	)
	err := row.Scan(&e.Code, &e.Name, &e.PasswordHash, (*string)(&e.Shift),
		&e.Level, &e.ShiftPct, &productivityCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}

	e.Productivity = fromCents(productivityCents)

	return &e, nil
}

// UpdateEmployeePassword сохраняет новый хеш пароля сотрудника.
func (r *PostgresRepository) UpdateEmployeePassword(ctx context.Context, code int64, passwordHash []byte) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE employees SET password_hash = $2 WHERE code = $1`,
		code, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}

	return nil
}

// CommitOrder атомарно сохраняет заказ: шапку, позиции, списание остатков и
// начисление выработки сотруднику. Любая ошибка откатывает всё целиком.
// Списание выполняется с условием stock >= quantity, поэтому устаревший
// снимок каталога проявляется как ErrInsufficientStock, а не как уход
// остатка в минус.
func (r *PostgresRepository) CommitOrder(ctx context.Context, order *model.Order) (int64, error) {
	var orderID int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (employee_code, total, bonus, created_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			order.EmployeeCode, toCents(order.Total), toCents(order.Bonus), order.CreatedAt,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, l := range order.Lines {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_items
				 (order_id, position, product_code, product_name, unit_price, quantity, line_total)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				orderID, i+1, l.ProductCode, l.ProductName,
				toCents(l.UnitPrice), l.Quantity, toCents(l.LineTotal),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			cmdTag, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2 WHERE code = $1 AND stock >= $2`,
				l.ProductCode, l.Quantity,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if cmdTag.RowsAffected() == 0 {
				return fmt.Errorf("%w: product %d", model.ErrInsufficientStock, l.ProductCode)
			}
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE employees SET productivity = productivity + $2 WHERE code = $1`,
			order.EmployeeCode, toCents(order.Bonus),
		)
		if err != nil {
			return fmt.Errorf("credit productivity: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: employee %d", ErrEmployeeNotFound, order.EmployeeCode)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return orderID, nil
}

// GetOrdersByEmployee возвращает подтверждённые заказы сотрудника,
// новые первыми, без позиций.
func (r *PostgresRepository) GetOrdersByEmployee(ctx context.Context, employeeCode int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, employee_code, total, bonus, created_at
		 FROM orders
		 WHERE employee_code = $1
		 ORDER BY created_at DESC, id DESC`,
		employeeCode,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var (
			o          model.Order
			totalCents int64
			bonusCents int64
		)
		if err := rows.Scan(&o.Number, &o.EmployeeCode, &totalCents, &bonusCents, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Total = fromCents(totalCents)
		o.Bonus = fromCents(bonusCents)
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetOrder возвращает заказ с позициями и именем сотрудника.
func (r *PostgresRepository) GetOrder(ctx context.Context, number int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT o.id, o.employee_code, e.name, o.total, o.bonus, o.created_at
		 FROM orders o
		 JOIN employees e ON e.code = o.employee_code
		 WHERE o.id = $1`,
		number,
	)

	var (
		o          model.Order
		totalCents int64
		bonusCents int64
	)
	err := row.Scan(&o.Number, &o.EmployeeCode, &o.EmployeeName, &totalCents, &bonusCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Total = fromCents(totalCents)
	o.Bonus = fromCents(bonusCents)

	rows, err := r.pool.Query(ctx,
		`SELECT product_code, product_name, unit_price, quantity, line_total
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY position`,
		number,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l              model.LineItem
			unitPriceCents int64
			lineTotalCents int64
		)
		if err := rows.Scan(&l.ProductCode, &l.ProductName, &unitPriceCents, &l.Quantity, &lineTotalCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		l.UnitPrice = fromCents(unitPriceCents)
		l.LineTotal = fromCents(lineTotalCents)
		o.Lines = append(o.Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}

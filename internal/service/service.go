// Package service реализует бизнес-логику кассового сервиса.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/mmeshcher/posline-system/internal/model"
	"github.com/mmeshcher/posline-system/internal/pricelist"
	"github.com/mmeshcher/posline-system/internal/repository"
)

// ErrInvalidPassword возвращается при неверном пароле существующего сотрудника.
var (
	ErrInvalidPassword = errors.New("invalid password")
	// ErrSettlementExists возвращается, если у сотрудника уже есть открытая сессия заказа.
	ErrSettlementExists = errors.New("settlement already open")
	// ErrNoSettlement возвращается при операции без открытой сессии заказа.
	ErrNoSettlement = errors.New("no open settlement")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, code int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	UpsertCatalogPrices(ctx context.Context, products []model.Product) error
	GetEmployeeByCode(ctx context.Context, code int64) (*model.Employee, error)
	UpdateEmployeePassword(ctx context.Context, code int64, passwordHash []byte) error
	CommitOrder(ctx context.Context, order *model.Order) (int64, error)
	GetOrdersByEmployee(ctx context.Context, employeeCode int64) ([]model.Order, error)
	GetOrder(ctx context.Context, number int64) (*model.Order, error)
}

// Service содержит бизнес-логику кассового сервиса: аутентификацию,
// ведение сессий оформления заказов и синхронизацию каталога.
type Service struct {
	repo            Repository
	pricelistClient *pricelist.Client
	rules           model.BonusRules
	maxLines        int

	mu   sync.Mutex
	open map[int64]*model.Settlement
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом прайс-листа.
func NewService(repo Repository, pricelistClient *pricelist.Client, rules model.BonusRules, maxLines int) *Service {
	return &Service{
		repo:            repo,
		pricelistClient: pricelistClient,
		rules:           rules,
		maxLines:        maxLines,
		open:            make(map[int64]*model.Settlement),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func hashPassword(code int64, password string) []byte {
	sum := sha256.Sum256([]byte(strconv.FormatInt(code, 10) + ":" + password))
	return sum[:]
}

// Authenticate проверяет табельный номер и пароль сотрудника.
// Неизвестный номер и неверный пароль различаются ошибками
// repository.ErrEmployeeNotFound и ErrInvalidPassword.
func (s *Service) Authenticate(ctx context.Context, code int64, password string) (*model.Employee, error) {
	e, err := s.repo.GetEmployeeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(code, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(e.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	return e, nil
}

// GetEmployee возвращает сотрудника по табельному номеру.
func (s *Service) GetEmployee(ctx context.Context, code int64) (*model.Employee, error) {
	return s.repo.GetEmployeeByCode(ctx, code)
}

// ChangePassword устанавливает сотруднику новый пароль.
func (s *Service) ChangePassword(ctx context.Context, code int64, password string) error {
	return s.repo.UpdateEmployeePassword(ctx, code, hashPassword(code, password))
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// UpdateProduct сохраняет правку товара из бэк-офиса.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	if p.Price <= 0 {
		return model.ErrInvalidPrice
	}
	return s.repo.UpdateProduct(ctx, p)
}

// OpenSettlement открывает сотруднику сессию оформления заказа над снимком
// каталога. У сотрудника может быть не более одной открытой сессии.
func (s *Service) OpenSettlement(ctx context.Context, employeeCode int64) error {
	s.mu.Lock()
	_, exists := s.open[employeeCode]
	s.mu.Unlock()
	if exists {
		return ErrSettlementExists
	}

	e, err := s.repo.GetEmployeeByCode(ctx, employeeCode)
	if err != nil {
		return err
	}

	catalog, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.open[employeeCode]; exists {
		return ErrSettlementExists
	}
	s.open[employeeCode] = model.NewSettlement(e, catalog, s.maxLines)

	return nil
}

func (s *Service) settlement(employeeCode int64) (*model.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.open[employeeCode]
	if !ok {
		return nil, ErrNoSettlement
	}
	return st, nil
}

// AddLine добавляет позицию в открытую сессию сотрудника. Отказ по остатку
// или повтору товара не меняет уже набранные позиции, сессия остаётся открытой.
func (s *Service) AddLine(ctx context.Context, employeeCode, productCode int64, qty int) (model.LineItem, error) {
	st, err := s.settlement(employeeCode)
	if err != nil {
		return model.LineItem{}, err
	}

	return st.AddLine(productCode, qty)
}

// SettlementLines возвращает позиции открытой сессии сотрудника.
func (s *Service) SettlementLines(ctx context.Context, employeeCode int64) ([]model.LineItem, error) {
	st, err := s.settlement(employeeCode)
	if err != nil {
		return nil, err
	}
	return st.Lines(), nil
}

// CommitSettlement подтверждает открытую сессию: строит заказ, один раз
// начисляет премию и атомарно сохраняет всё в репозитории. Пустая сессия
// закрывается без побочных эффектов с ошибкой model.ErrOrderEmpty. При
// ошибке сохранения сессия остаётся открытой, повторное подтверждение не
// начисляет премию второй раз.
func (s *Service) CommitSettlement(ctx context.Context, employeeCode int64) (*model.Order, error) {
	st, err := s.settlement(employeeCode)
	if err != nil {
		return nil, err
	}

	order, err := st.Seal(time.Now(), s.rules)
	if err != nil {
		if errors.Is(err, model.ErrOrderEmpty) {
			s.mu.Lock()
			delete(s.open, employeeCode)
			s.mu.Unlock()
		}
		return nil, err
	}

	number, err := s.repo.CommitOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	st.MarkCommitted(number)

	s.mu.Lock()
	delete(s.open, employeeCode)
	s.mu.Unlock()

	return order, nil
}

// DiscardSettlement отменяет открытую сессию сотрудника. Каталог и выработка
// не меняются: сессия работала только со снимком.
func (s *Service) DiscardSettlement(ctx context.Context, employeeCode int64) error {
	st, err := s.settlement(employeeCode)
	if err != nil {
		return err
	}

	if err := st.Discard(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.open, employeeCode)
	s.mu.Unlock()

	return nil
}

// GetOrdersByEmployee возвращает подтверждённые заказы сотрудника.
func (s *Service) GetOrdersByEmployee(ctx context.Context, employeeCode int64) ([]model.Order, error) {
	return s.repo.GetOrdersByEmployee(ctx, employeeCode)
}

// GetInvoice возвращает текст накладной заказа. Сотрудник видит только свои
// заказы, чужой номер неотличим от несуществующего.
func (s *Service) GetInvoice(ctx context.Context, employeeCode, number int64) (string, error) {
	order, err := s.repo.GetOrder(ctx, number)
	if err != nil {
		return "", err
	}

	if order.EmployeeCode != employeeCode {
		return "", repository.ErrOrderNotFound
	}

	return order.Invoice(), nil
}

// StartCatalogSync запускает фоновое обновление каталога из прайс-листа поставщика.
func (s *Service) StartCatalogSync(ctx context.Context) {
	if s.pricelistClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncCatalog(ctx)
			}
		}
	}()
}

func (s *Service) syncCatalog(ctx context.Context) {
	items, statusCode, retryAfter, err := s.pricelistClient.FetchPriceList(ctx)
	if err != nil {
		return
	}

	if statusCode == 429 {
		if retryAfter > 0 {
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		return
	}

	if len(items) == 0 {
		return
	}

	products := make([]model.Product, 0, len(items))
	for _, it := range items {
		if it.Code <= 0 || it.Name == "" || it.Price <= 0 {
			continue
		}

		kind := model.ProductKind(it.Kind)
		if kind != model.ProductPerishable && kind != model.ProductNonPerishable {
			kind = model.ProductNonPerishable
		}

		products = append(products, model.Product{
			Code:         it.Code,
			Name:         it.Name,
			Price:        it.Price,
			Kind:         kind,
			DaysToExpiry: it.DaysToExpiry,
		})
	}

	_ = s.repo.UpsertCatalogPrices(ctx, products)
}

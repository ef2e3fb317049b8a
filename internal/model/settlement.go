package model

import (
	"errors"
	"time"
)

// ErrUnknownProduct возвращается при выборе товара, которого нет в снимке каталога.
var (
	ErrUnknownProduct = errors.New("unknown product")
	// ErrDuplicateLine возвращается при повторном выборе товара в рамках одного заказа.
	ErrDuplicateLine = errors.New("product already in order")
	// ErrInvalidQuantity возвращается при неположительном количестве.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrSettlementClosed возвращается при операции над завершённой сессией.
	ErrSettlementClosed = errors.New("settlement is closed")
	// ErrOrderEmpty возвращается при попытке подтвердить заказ без позиций.
	ErrOrderEmpty = errors.New("order has no lines")
)

// SettlementState описывает состояние сессии оформления заказа.
type SettlementState string

const (
	SettlementBuilding  SettlementState = "BUILDING"
	SettlementReady     SettlementState = "READY"
	SettlementCommitted SettlementState = "COMMITTED"
	SettlementDiscarded SettlementState = "DISCARDED"
)

// Settlement — сессия оформления заказа одним сотрудником. Сессия работает
// со снимком каталога, снятым при открытии: проверки остатков идут по снимку,
// а реальное списание происходит только в транзакции подтверждения.
type Settlement struct {
	employee *Employee
	catalog  map[int64]*Product
	lines    []LineItem
	state    SettlementState
	maxLines int
	sealed   *Order
}

// NewSettlement открывает сессию для сотрудника над снимком каталога.
// Переданные товары копируются, дальнейшие правки каталога на сессию не влияют.
func NewSettlement(e *Employee, catalog []Product, maxLines int) *Settlement {
	snapshot := make(map[int64]*Product, len(catalog))
	for i := range catalog {
		snapshot[catalog[i].Code] = catalog[i].Clone()
	}

	return &Settlement{
		employee: e,
		catalog:  snapshot,
		state:    SettlementBuilding,
		maxLines: maxLines,
	}
}

// Employee возвращает сотрудника, ведущего сессию.
func (s *Settlement) Employee() *Employee {
	return s.employee
}

// State возвращает текущее состояние сессии.
func (s *Settlement) State() SettlementState {
	return s.state
}

// Lines возвращает копию накопленных позиций заказа.
func (s *Settlement) Lines() []LineItem {
	res := make([]LineItem, len(s.lines))
	copy(res, s.lines)
	return res
}

// AddLine добавляет позицию заказа: qty единиц товара с кодом code.
// Товар может входить в заказ только один раз, количество не может превышать
// остаток из снимка каталога. При отказе уже добавленные позиции не меняются.
// По достижении лимита позиций сессия переходит в состояние READY.
func (s *Settlement) AddLine(code int64, qty int) (LineItem, error) {
	if s.state != SettlementBuilding {
		return LineItem{}, ErrSettlementClosed
	}
	if qty < 1 {
		return LineItem{}, ErrInvalidQuantity
	}

	p, ok := s.catalog[code]
	if !ok {
		return LineItem{}, ErrUnknownProduct
	}

	for _, l := range s.lines {
		if l.ProductCode == code {
			return LineItem{}, ErrDuplicateLine
		}
	}

	if qty > p.Stock {
		return LineItem{}, ErrInsufficientStock
	}

	line := LineItem{
		ProductCode: code,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    qty,
		LineTotal:   p.PriceFor(qty),
	}
	s.lines = append(s.lines, line)

	if len(s.lines) >= s.maxLines {
		s.state = SettlementReady
	}

	return line, nil
}

// Seal завершает набор позиций и строит заказ: считает итог и ровно один раз
// начисляет премию сотрудника. Повторный вызов возвращает уже построенный
// заказ без повторного начисления, поэтому неудачное сохранение можно
// повторять. Пустая сессия закрывается с ошибкой ErrOrderEmpty.
func (s *Settlement) Seal(now time.Time, rules BonusRules) (*Order, error) {
	if s.sealed != nil {
		return s.sealed, nil
	}
	if s.state != SettlementBuilding && s.state != SettlementReady {
		return nil, ErrSettlementClosed
	}

	if len(s.lines) == 0 {
		s.state = SettlementDiscarded
		return nil, ErrOrderEmpty
	}

	var total float64
	for _, l := range s.lines {
		total += l.LineTotal
	}

	order := &Order{
		EmployeeCode: s.employee.Code,
		EmployeeName: s.employee.Name,
		Lines:        s.Lines(),
		Total:        total,
		CreatedAt:    now,
	}
	order.Bonus = s.employee.CalculateBonus(total, rules)

	s.sealed = order
	s.state = SettlementReady

	return order, nil
}

// MarkCommitted фиксирует успешное сохранение заказа под номером number.
func (s *Settlement) MarkCommitted(number int64) {
	if s.sealed != nil {
		s.sealed.Number = number
	}
	s.state = SettlementCommitted
}

// Discard отменяет сессию. Снимок каталога отбрасывается, подтверждённую
// сессию отменить нельзя.
func (s *Settlement) Discard() error {
	if s.state == SettlementCommitted {
		return ErrSettlementClosed
	}
	s.state = SettlementDiscarded
	return nil
}

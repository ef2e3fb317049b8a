package model

import "errors"

// ErrInsufficientStock возвращается при попытке списать больше товара, чем есть на складе.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidPrice возвращается при попытке установить неположительную цену.
	ErrInvalidPrice = errors.New("price must be positive")
)

// ProductKind описывает вид товара.
type ProductKind string

const (
	ProductPerishable    ProductKind = "PERISHABLE"
	ProductNonPerishable ProductKind = "NONPERISHABLE"
)

// Product описывает товар каталога. Поле DaysToExpiry имеет смысл только для
// скоропортящихся товаров, Offer — только для нескоропортящихся.
type Product struct {
	Code         int64
	Name         string
	Price        float64
	Stock        int
	Kind         ProductKind
	DaysToExpiry int
	Offer        *Offer
}

// PriceFor возвращает стоимость qty единиц товара по текущей цене.
// Скоропортящийся товар дешевеет по мере приближения срока годности,
// нескоропортящийся считается по акции, если она привязана.
// Остаток на складе не меняется.
func (p *Product) PriceFor(qty int) float64 {
	switch p.Kind {
	case ProductPerishable:
		return p.Price * expiryMultiplier(p.DaysToExpiry) * float64(qty)
	case ProductNonPerishable:
		if p.Offer != nil {
			return p.Offer.Apply(p.Price, qty)
		}
	}
	return p.Price * float64(qty)
}

func expiryMultiplier(days int) float64 {
	switch days {
	case 1:
		return 0.25
	case 2:
		return 1.0 / 3.0
	case 3:
		return 0.5
	default:
		return 1
	}
}

// ReduceStock уменьшает остаток на qty единиц. Если запрошено больше, чем
// есть на складе, остаток не меняется и возвращается ErrInsufficientStock.
func (p *Product) ReduceStock(qty int) error {
	if qty > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

// Clone возвращает независимую копию товара вместе с привязанной акцией.
func (p *Product) Clone() *Product {
	cp := *p
	if p.Offer != nil {
		offer := *p.Offer
		cp.Offer = &offer
	}
	return &cp
}

// Package model содержит доменные сущности кассового сервиса: каталог,
// сотрудников, заказы и правила их расчёта.
package model

// OfferKind описывает вид акции, привязанной к нескоропортящемуся товару.
type OfferKind string

const (
	OfferTwoForOne   OfferKind = "TWO_FOR_ONE"
	OfferThreeForTwo OfferKind = "THREE_FOR_TWO"
	OfferPercentage  OfferKind = "PERCENTAGE"
)

// Offer описывает акцию на товар. Параметры Percent и MaxUnits
// используются только видом OfferPercentage.
type Offer struct {
	Code     int64
	Kind     OfferKind
	Percent  float64
	MaxUnits int
}

// Apply возвращает итоговую стоимость qty единиц товара по цене unitPrice
// с учётом акции. Функция чистая: состояние акции не меняется.
func (o *Offer) Apply(unitPrice float64, qty int) float64 {
	switch o.Kind {
	case OfferTwoForOne:
		billable := (qty + 1) / 2
		return float64(billable) * unitPrice
	case OfferThreeForTwo:
		billable := qty/3*2 + qty%3
		return float64(billable) * unitPrice
	case OfferPercentage:
		discounted := qty
		if discounted > o.MaxUnits {
			discounted = o.MaxUnits
		}
		return float64(discounted)*unitPrice*(1-o.Percent/100) +
			float64(qty-discounted)*unitPrice
	}
	return float64(qty) * unitPrice
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// LineItem описывает одну позицию заказа. Название и цена товара
// фиксируются в момент выбора и не зависят от последующих правок каталога.
type LineItem struct {
	ProductCode int64
	ProductName string
	UnitPrice   float64
	Quantity    int
	LineTotal   float64
}

// Order описывает подтверждённый или формируемый заказ сотрудника.
// Порядок позиций совпадает с порядком их добавления.
type Order struct {
	Number       int64
	EmployeeCode int64
	EmployeeName string
	Lines        []LineItem
	Total        float64
	Bonus        float64
	CreatedAt    time.Time
}

const invoiceTimeLayout = "2006-01-02 15:04:05"

// Invoice возвращает текст накладной заказа. Текст строится только из
// сохранённых полей, поэтому повторный вызов даёт байт-в-байт тот же результат.
func (o *Order) Invoice() string {
	var b strings.Builder

	fmt.Fprintf(&b, "ORDER #%d\n", o.Number)
	fmt.Fprintf(&b, "Date: %s\n", o.CreatedAt.UTC().Format(invoiceTimeLayout))
	fmt.Fprintf(&b, "Employee: %s\n", o.EmployeeName)

	for _, l := range o.Lines {
		fmt.Fprintf(&b, "%d x %s (%.2f€/u) = %.2f€\n",
			l.Quantity, l.ProductName, l.UnitPrice, l.LineTotal)
	}

	fmt.Fprintf(&b, "TOTAL: %.2f€\n", o.Total)
	fmt.Fprintf(&b, "BONUS: %.2f€\n", o.Bonus)

	return b.String()
}

package model

// ShiftKind описывает смену сотрудника.
type ShiftKind string

const (
	ShiftDay   ShiftKind = "DAY"
	ShiftNight ShiftKind = "NIGHT"
)

// Employee описывает сотрудника магазина. Смысл поля ShiftPct зависит от
// смены: для дневной это процент удержания из премии, для ночной —
// процент ночной надбавки от суммы заказа.
type Employee struct {
	Code         int64
	Name         string
	PasswordHash []byte
	Shift        ShiftKind
	Level        int
	ShiftPct     float64
	Productivity float64
}

// BonusRules содержит пороги суммы заказа, влияющие на расчёт премии.
type BonusRules struct {
	DayThreshold   float64
	NightThreshold float64
}

// DefaultBonusRules возвращает пороги по умолчанию.
func DefaultBonusRules() BonusRules {
	return BonusRules{
		DayThreshold:   300,
		NightThreshold: 200,
	}
}

// CalculateBonus возвращает премию сотрудника за заказ на сумму orderTotal и
// увеличивает накопленную выработку на размер премии. Базовая премия равна
// уровню сотрудника (1–3 денежные единицы).
//
// Дневная смена: первый уровень не удерживает ничего; второй уровень не
// удерживает при сумме заказа выше rules.DayThreshold; иначе из базовой
// премии удерживается ShiftPct процентов.
//
// Ночная смена: первому уровню базовая премия удваивается при сумме заказа
// выше rules.NightThreshold; к итогу добавляется ShiftPct процентов от
// суммы заказа.
func (e *Employee) CalculateBonus(orderTotal float64, rules BonusRules) float64 {
	base := float64(e.Level)

	var bonus float64
	switch e.Shift {
	case ShiftNight:
		if e.Level == 1 && orderTotal > rules.NightThreshold {
			base *= 2
		}
		bonus = base + orderTotal*e.ShiftPct/100
	default:
		withholding := e.ShiftPct
		if e.Level == 1 {
			withholding = 0
		}
		if e.Level == 2 && orderTotal > rules.DayThreshold {
			withholding = 0
		}
		bonus = base - base*withholding/100
	}

	e.Productivity += bonus
	return bonus
}

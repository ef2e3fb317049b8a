// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// IsValidCode проверяет, что код сущности положителен.
func IsValidCode(code int64) bool {
	return code > 0
}

// IsValidQuantity проверяет, что количество положительно.
func IsValidQuantity(qty int) bool {
	return qty >= 1
}

// IsValidName проверяет, что название непустое после обрезки пробелов.
func IsValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// IsValidPassword проверяет, что пароль непустой.
func IsValidPassword(password string) bool {
	return password != ""
}

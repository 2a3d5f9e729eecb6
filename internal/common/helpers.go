// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: обрезка строк для логов, нормализация параметров пагинации.
package common

// TruncateForLog обрезает строку до max символов для записи в лог.
// Длинные тела постов в логах не нужны.
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ClampLimit нормализует limit пагинации: значения вне [1, max] заменяются дефолтом.
//
// Примеры:
//
//	ClampLimit(0, 25, 100)   → 25
//	ClampLimit(50, 25, 100)  → 50
//	ClampLimit(500, 25, 100) → 25
func ClampLimit(limit, def, max int) int {
	if limit < 1 || limit > max {
		return def
	}
	return limit
}

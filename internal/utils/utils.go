// Package utils содержит утилитарные функции, используемые в разных частях приложения
package utils

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// FormatDuration форматирует time.Duration в формат HH:MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatDurationFromSeconds форматирует продолжительность в секундах в формат HH:MM:SS
func FormatDurationFromSeconds(seconds int) string {
	return FormatDuration(time.Duration(seconds) * time.Second)
}

// TruncateBytes обрезает строку так, чтобы она занимала не больше maxBytes байт,
// добавляя "..." если строка длиннее. Строка режется только по границе руны.
func TruncateBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 3 {
		return cutRunes(s, maxBytes)
	}
	return cutRunes(s, maxBytes-3) + "..."
}

// cutRunes возвращает самый длинный префикс s не длиннее n байт
func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	end := 0
	for i, r := range s {
		size := utf8.RuneLen(r)
		if size < 0 {
			size = 1
		}
		if i+size > n {
			break
		}
		end = i + size
	}
	return s[:end]
}

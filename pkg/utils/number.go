package utils

import (
	"math"
	"strconv"
	"strings"
)

func RoundWithTwoDecimalPlace(f float64) float64 {
	if f == 0 {
		return 0
	}

	return math.Round(f*100) / 100
}

// ParseFloat aceita strings vazias como zero, formato usado pelo Meta em métricas ausentes.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// MinorUnitsToAmount converte orçamentos em centavos ("15000") para valor monetário (150.00).
// Retorna nil quando o valor está ausente ou zerado.
func MinorUnitsToAmount(s string) *float64 {
	cents, err := ParseFloat(s)
	if err != nil || cents <= 0 {
		return nil
	}

	amount := RoundWithTwoDecimalPlace(cents / 100)
	return &amount
}

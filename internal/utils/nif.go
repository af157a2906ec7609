package utils

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`\D`)

// CleanNIF removes all non-numeric characters from a NIF
func CleanNIF(nif string) string {
	return nonDigit.ReplaceAllString(nif, "")
}

// FormatNIF formats a NIF in groups of three (XXX XXX XXX)
func FormatNIF(nif string) string {
	cleaned := CleanNIF(nif)
	if len(cleaned) != 9 {
		return nif
	}

	return cleaned[:3] + " " + cleaned[3:6] + " " + cleaned[6:]
}

// IsValidNIF validates a NIF using the modulo 11 check digit
func IsValidNIF(nif string) bool {
	cleaned := CleanNIF(nif)
	if len(cleaned) != 9 || cleaned != strings.TrimSpace(nif) {
		return false
	}

	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(cleaned[i]-'0') * (9 - i)
	}

	return int(cleaned[8]-'0') == checkDigit(sum)
}

func checkDigit(sum int) int {
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

// GetNIFEntityType classifies a NIF by its leading digits
func GetNIFEntityType(nif string) string {
	cleaned := CleanNIF(nif)
	if len(cleaned) != 9 {
		return "INVALID"
	}

	switch cleaned[0] {
	case '1', '2', '3':
		return "PESSOA_SINGULAR"
	case '5':
		return "PESSOA_COLETIVA"
	case '6':
		return "ADMINISTRACAO_PUBLICA"
	case '8':
		return "EMPRESARIO_INDIVIDUAL"
	case '9':
		return "IRREGULAR"
	case '7':
		return "OUTRO"
	default:
		return "INVALID"
	}
}

// NIFInfo holds information about a NIF
type NIFInfo struct {
	Original   string `json:"original"`
	Cleaned    string `json:"cleaned"`
	Formatted  string `json:"formatted"`
	Valid      bool   `json:"valid"`
	EntityType string `json:"entity_type"`
}

// AnalyzeNIF analyzes a NIF string and returns detailed information
func AnalyzeNIF(nif string) NIFInfo {
	cleaned := CleanNIF(nif)
	valid := len(cleaned) == 9 && IsValidNIF(cleaned)

	info := NIFInfo{
		Original:   nif,
		Cleaned:    cleaned,
		Valid:      valid,
		EntityType: GetNIFEntityType(cleaned),
	}
	if valid {
		info.Formatted = FormatNIF(cleaned)
	}
	return info
}

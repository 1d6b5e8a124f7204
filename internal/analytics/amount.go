package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// ParseAmount converts a locale-ambiguous numeric string to a float.
// The exports mix "53.550.640,279", "1,234.56" and "123,45" styles, so the
// separators are disambiguated by their relative positions before parsing.
// Returns nil when the value cannot be interpreted as a number; that is a
// row-local condition reported via log and counter, never an error.
func ParseAmount(value string) *float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	normalized := normalizeSeparators(trimmed)

	dec, err := decimal.NewFromString(normalized)
	if err != nil {
		metrics.AmountParseFailures.Inc()
		logger.Warn("unparsable amount, treated as null", zap.String("value", value))
		return nil
	}
	f, _ := dec.Float64()
	return &f
}

func normalizeSeparators(val string) string {
	lastDot := strings.LastIndex(val, ".")
	lastComma := strings.LastIndex(val, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0 && lastDot < lastComma:
		// "53.550.640,279": dots group thousands, the comma is decimal.
		val = strings.ReplaceAll(val, ".", "")
		val = strings.ReplaceAll(val, ",", ".")

	case lastDot >= 0 && lastComma >= 0:
		// "1,234.56": commas group thousands.
		val = strings.ReplaceAll(val, ",", "")

	case lastComma >= 0:
		// Comma only. A single comma with at most two trailing digits is a
		// decimal comma ("123,45"); anything else groups thousands.
		if strings.Count(val, ",") == 1 && len(val)-lastComma-1 <= 2 {
			val = strings.Replace(val, ",", ".", 1)
		} else {
			val = strings.ReplaceAll(val, ",", "")
		}

	case strings.Count(val, ".") >= 2:
		// "53.550.640": all dots but the last group thousands.
		parts := strings.Split(val, ".")
		val = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	return val
}

// Package parser converts free-text trading instructions into typed trade
// intents. The expected format is:
//
//	LONG $BTC
//	Entry 43000        (0 = enter at market price)
//	Stl 42800
//	Tp 44000 - 44500 - 45000
//
// Direction is case-insensitive and the $ prefix is optional. The parser
// does not validate price relationships (stop vs entry for the direction);
// that requires market-price context and belongs to the orchestrator.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

var (
	headerPattern = regexp.MustCompile(`(?i)^(LONG|SHORT)\s+\$?([A-Za-z0-9]+)$`)
	entryPattern  = regexp.MustCompile(`(?i)\bEntry\s+(\d+\.?\d*)`)
	stopPattern   = regexp.MustCompile(`(?i)\bStl\s+(\d+\.?\d*)`)
	tpPattern     = regexp.MustCompile(`(?i)\bTp\s+([\d.\s\-]+)`)
)

// Parse converts instruction text into a TradeIntent.
func Parse(text string) (types.TradeIntent, error) {
	header := firstNonEmptyLine(text)
	if header == "" {
		return types.TradeIntent{}, errors.New(errors.ErrCodeMalformedHeader, "instruction is empty")
	}

	match := headerPattern.FindStringSubmatch(header)
	if match == nil {
		return types.TradeIntent{}, errors.Newf(errors.ErrCodeMalformedHeader,
			"first line must be '<LONG|SHORT> $<SYMBOL>', got %q", header)
	}

	direction := types.Direction(strings.ToUpper(match[1]))
	symbol := strings.ToUpper(match[2])

	entry, err := extractPrice(entryPattern, text, "Entry")
	if err != nil {
		return types.TradeIntent{}, err
	}

	stop, err := extractPrice(stopPattern, text, "Stl")
	if err != nil {
		return types.TradeIntent{}, err
	}

	takeProfits, err := extractTakeProfits(text)
	if err != nil {
		return types.TradeIntent{}, err
	}

	intent := types.TradeIntent{
		Direction:   direction,
		Symbol:      symbol,
		EntryPrice:  entry,
		StopPrice:   stop,
		TakeProfits: takeProfits,
	}

	if err := intent.Validate(); err != nil {
		return types.TradeIntent{}, err
	}

	return intent, nil
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}

	return ""
}

func extractPrice(pattern *regexp.Regexp, text, field string) (float64, error) {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return 0, errors.Newf(errors.ErrCodeMissingField, "missing field %s", field)
	}

	price, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeMissingField, "field %s is not numeric: %q", field, match[1])
	}

	return price, nil
}

func extractTakeProfits(text string) ([]float64, error) {
	match := tpPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, errors.Newf(errors.ErrCodeMissingField, "missing field %s", "Tp")
	}

	parts := strings.Split(match[1], "-")
	prices := make([]float64, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			return nil, errors.Newf(errors.ErrCodeMissingField, "field Tp has an empty price entry")
		}

		price, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeMissingField, "field Tp is not numeric: %q", trimmed)
		}

		prices = append(prices, price)
	}

	return prices, nil
}

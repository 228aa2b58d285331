package enrich

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// nullToken stands in for an absent grouping-key component.
const nullToken = "null"

// SpecialValue is the parsed form of a provider special-value string such
// as "total=2.5,handicap=-1".
type SpecialValue struct {
	Total    *decimal.Decimal
	Handicap *decimal.Decimal
	Params   map[string]string
}

// ParseSpecialValue parses a comma-separated key=value list. Unknown keys
// are kept in Params; malformed pairs and unparsable numbers are ignored.
func ParseSpecialValue(s string) SpecialValue {
	var sv SpecialValue
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		switch k {
		case "total":
			sv.Total = parseDecimal(v)
		case "handicap", "hcp":
			sv.Handicap = parseDecimal(v)
		default:
			if sv.Params == nil {
				sv.Params = make(map[string]string)
			}
			sv.Params[k] = v
		}
	}
	return sv
}

func parseDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// GroupingKey builds "<group>|<total>|<handicap>" with "null" for absent
// components. Numbers use their canonical decimal form so "2.50" and "2.5"
// collapse together.
func GroupingKey(group string, total, handicap *decimal.Decimal) string {
	if group == "" {
		group = nullToken
	}
	return group + "|" + decimalToken(total) + "|" + decimalToken(handicap)
}

func decimalToken(d *decimal.Decimal) string {
	if d == nil {
		return nullToken
	}
	return d.String()
}

// sortOutcomeKeys orders numeric keys ascending first, then the rest
// lexicographically.
func sortOutcomeKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseInt(keys[i], 10, 64)
		b, bErr := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortOutcomeKeys(keys)
	return keys
}

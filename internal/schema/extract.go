package schema

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/residuals-cli/internal/model"
)

// fieldAliases lists normalized fallback column names per canonical field, in
// priority order. The alias path exists only to tolerate minor header drift
// (trailing spaces, pluralization); exact schema mappings are authoritative.
var fieldAliases = map[Field][]string{
	FieldMID:          {"merchant id", "merchant number", "merchant #", "mid", "account number"},
	FieldName:         {"dba name", "merchant name", "dba", "merchant", "name"},
	FieldRevenue:      {"net residual", "agent residual", "residual", "net income", "income", "commission", "net"},
	FieldVolume:       {"sales amount", "processing volume", "gross volume", "volume", "sales"},
	FieldTransactions: {"transaction count", "transactions", "txn count", "txns", "count"},
}

// Extractor pulls canonical fields out of a raw row using the schema's field
// map first and the alias lists as a last resort.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds a canonical revenue record from one raw row. Numeric fields
// parse permissively and default to zero rather than failing the row.
func (e *Extractor) Extract(header, row []string, s *ProcessorSchema) model.RevenueRecord {
	cols := make(map[string]string, len(header))
	normCols := make(map[string]string, len(header))
	normOrder := make([]string, 0, len(header))
	for i, h := range header {
		if i >= len(row) {
			break
		}
		cols[strings.TrimSpace(h)] = row[i]
		// First occurrence wins when headers normalize identically.
		norm := normalizeHeader(h)
		if _, ok := normCols[norm]; !ok {
			normCols[norm] = row[i]
			normOrder = append(normOrder, norm)
		}
	}

	get := func(f Field) string {
		// Exact match against the schema mapping.
		if v, ok := cols[s.FieldMap[f]]; ok {
			return v
		}
		// Alias fallback, ordered, exact normalized equality first.
		for _, alias := range fieldAliases[f] {
			if v, ok := normCols[alias]; ok {
				zap.L().Debug("schema: field matched via alias",
					zap.String("processor", s.Name),
					zap.String("field", string(f)),
					zap.String("alias", alias),
				)
				return v
			}
		}
		// Substring containment, alias-ordered, columns in file order so
		// the pick is stable when several columns contain the alias.
		for _, alias := range fieldAliases[f] {
			for _, col := range normOrder {
				if strings.Contains(col, alias) {
					zap.L().Debug("schema: field matched via substring",
						zap.String("processor", s.Name),
						zap.String("field", string(f)),
						zap.String("alias", alias),
						zap.String("column", col),
					)
					return normCols[col]
				}
			}
		}
		return ""
	}

	return model.RevenueRecord{
		MID:          strings.TrimSpace(get(FieldMID)),
		Name:         strings.TrimSpace(get(FieldName)),
		Revenue:      ParseAmount(get(FieldRevenue)),
		Volume:       ParseAmount(get(FieldVolume)),
		Transactions: ParseCount(get(FieldTransactions)),
		Processor:    s.Name,
	}
}

// ParseAmount parses a monetary value, stripping currency symbols and
// thousands separators. Parenthesized values are negative. Garbage parses to
// zero.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if neg {
		return -v
	}
	return v
}

// ParseCount parses an integer count, tolerating decimal formatting from
// spreadsheet exports.
func ParseCount(s string) int {
	return int(ParseAmount(s))
}

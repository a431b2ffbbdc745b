// Package receipt scrapes structured fields out of raw OCR text.
//
// The heuristics are positional and substring based, tuned for Malaysian
// retail receipts ("RM" amounts). They are known to be fragile across
// receipt formats; FieldParser exists so format-specific strategies can be
// added without touching the pipeline. HeuristicParser is the default and
// only strategy.
package receipt

import (
	"errors"
	"strings"
)

// Variant selects the field set the parser produces.
type Variant string

const (
	// VariantBasic extracts shop name, date and total.
	VariantBasic Variant = "basic"

	// VariantExtended additionally extracts the shop address from the
	// second through fourth lines.
	VariantExtended Variant = "extended"
)

// ErrShortReceipt is returned by the extended variant when the text blob
// has fewer than the four lines the address heuristic needs.
var ErrShortReceipt = errors.New("receipt text has fewer than 4 lines, cannot extract address")

// ErrUnknownVariant is returned for a variant the parser does not know.
var ErrUnknownVariant = errors.New("unknown parser variant")

// Fields holds the scraped values. Date and Total are free text, exactly
// as they appear on the receipt; unmatched fields stay "".
type Fields struct {
	ShopName string
	Address  string
	Date     string
	Total    string
	RawText  string
}

// FieldParser turns a raw OCR text blob into fields.
type FieldParser interface {
	Parse(text string) (Fields, error)
}

// HeuristicParser is the default line-position/substring strategy.
type HeuristicParser struct {
	variant Variant
}

// NewHeuristicParser creates a parser for the given variant.
func NewHeuristicParser(variant Variant) (*HeuristicParser, error) {
	switch variant {
	case VariantBasic, VariantExtended:
		return &HeuristicParser{variant: variant}, nil
	default:
		return nil, ErrUnknownVariant
	}
}

// Parse scrapes fields from text:
//
//   - shop name: first line, unconditionally
//   - address (extended only): lines 2-4 joined with spaces
//   - date: second whitespace token of the first line containing "date"
//     (case-insensitive)
//   - total: first line containing "total" (case-insensitive); everything
//     after the last "RM" when present, otherwise the last whitespace token
//
// First matching line wins for date and total; later matches are ignored.
func (p *HeuristicParser) Parse(text string) (Fields, error) {
	fields := Fields{RawText: text}

	lines := strings.Split(text, "\n")
	fields.ShopName = lines[0]

	if p.variant == VariantExtended {
		if len(lines) < 4 {
			return Fields{}, ErrShortReceipt
		}
		fields.Address = strings.Join(lines[1:4], " ")
	}

	// First matching line wins, even when a later line looks more
	// plausible.
	var dateSeen, totalSeen bool
	for _, line := range lines {
		if !dateSeen && containsFold(line, "date") {
			dateSeen = true
			if tokens := strings.Fields(line); len(tokens) >= 2 {
				fields.Date = tokens[1]
			}
		}
		if !totalSeen && containsFold(line, "total") {
			totalSeen = true
			fields.Total = extractTotal(line)
		}
		if dateSeen && totalSeen {
			break
		}
	}

	return fields, nil
}

// extractTotal pulls the amount out of a line already known to mention a
// total.
func extractTotal(line string) string {
	if idx := strings.LastIndex(line, "RM"); idx >= 0 {
		return strings.TrimSpace(line[idx+len("RM"):])
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

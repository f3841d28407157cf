package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Generic fallback patterns shared across vendors. Vendor-specific patterns
// always run first; these catch the long tail of unrecognized formats.
//
// The generic order/confirmation patterns require an explicit ":" or "#"
// separator so that prose like "Order Confirmation" in a subject line does
// not capture the following word as an order number.
var (
	genericOrderNumber = []*regexp.Regexp{
		regexp.MustCompile(`(?i)#\s*([A-Z0-9-]{5,})`),
		regexp.MustCompile(`(?i)order[:#]\s*([A-Z0-9-]{5,})`),
		regexp.MustCompile(`(?i)confirmation[:#]\s*([A-Z0-9-]{5,})`),
	}

	genericTotal = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total:?\s*\$\s*([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)amount:?\s*\$\s*([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)\btotal\b.*?\$\s*([\d,]+\.\d{2})`),
	}

	genericPrice = []*regexp.Regexp{
		regexp.MustCompile(`\$\s*([\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)price:?\s*\$\s*([\d,]+\.\d{2})`),
	}

	genericQuantity = []*regexp.Regexp{
		regexp.MustCompile(`(?i)qty:?\s*(\d+)`),
		regexp.MustCompile(`(?i)quantity:?\s*(\d+)`),
		regexp.MustCompile(`(?i)\b(\d+)\s*x\b`),
	}
)

// layered builds the candidate pattern sequence for one field: vendor
// patterns (when a vendor was detected) ahead of the generic fallbacks.
func layered(vendor, generic []*regexp.Regexp) []*regexp.Regexp {
	if len(vendor) == 0 {
		return generic
	}
	out := make([]*regexp.Regexp, 0, len(vendor)+len(generic))
	out = append(out, vendor...)
	return append(out, generic...)
}

// extractOrderNumber tries each pattern against the subject first, then the
// body, returning the first capture. The ok result is false when no pattern
// matched anywhere; callers render that as the "UNKNOWN" sentinel at the
// output boundary.
func extractOrderNumber(subject, body string, vp *VendorProfile) (string, bool) {
	var vendorPatterns []*regexp.Regexp
	if vp != nil {
		vendorPatterns = vp.OrderNumber
	}

	for _, re := range layered(vendorPatterns, genericOrderNumber) {
		if m := re.FindStringSubmatch(subject); len(m) >= 2 {
			return m[1], true
		}
		if m := re.FindStringSubmatch(body); len(m) >= 2 {
			return m[1], true
		}
	}
	return "", false
}

// extractTotal resolves the order total as a decimal. Thousands separators
// are stripped before parsing. ok is false when no pattern matched, which is
// "unresolved", not a zero-cost order; validation distinguishes the two by
// vendor class.
func extractTotal(subject, body string, vp *VendorProfile) (float64, bool) {
	var vendorPatterns []*regexp.Regexp
	if vp != nil {
		vendorPatterns = vp.Total
	}

	for _, re := range layered(vendorPatterns, genericTotal) {
		if m := re.FindStringSubmatch(subject); len(m) >= 2 {
			if v, err := parseAmount(m[1]); err == nil {
				return v, true
			}
		}
		if m := re.FindStringSubmatch(body); len(m) >= 2 {
			if v, err := parseAmount(m[1]); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// matchFirst returns the submatches of the first pattern that matches text.
func matchFirst(text string, patterns []*regexp.Regexp) []string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) >= 2 {
			return m
		}
	}
	return nil
}

// parseAmount parses a captured money amount. Group separators are commas
// and the decimal point is ".", regardless of locale.
func parseAmount(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

func parsePositiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

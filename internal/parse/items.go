package parse

import (
	"math"
	"regexp"
	"strings"
)

// LineItem is one purchased item with a resolved quantity and unit price.
// Items missing either field are never emitted.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// embeddedQtyRE re-splits an item name that itself starts with "<N> x ",
// preferring that more specific quantity/name split.
var embeddedQtyRE = regexp.MustCompile(`(?i)^(\d+)\s*x\s*"?(.+?)"?$`)

// scanItemLines builds items from an enumerable item block: each body line is
// probed independently for a quantity and a price (vendor patterns first,
// generic fallbacks second). A line that yields either field joins the running
// candidate; the candidate flushes into an item only once both fields are
// known, at which point the flushing line's trimmed text becomes the item
// name. Quantity and price may therefore arrive on different lines of the
// same block.
//
// When a dense line carries fields belonging to two adjacent items, the
// single-pass flush-on-both-fields rule can misattribute them. That behavior
// is kept for compatibility with the emails this engine was tuned on.
func scanItemLines(body string, vp *VendorProfile) []LineItem {
	var vendorQty, vendorPrice []*regexp.Regexp
	if vp != nil {
		vendorQty = vp.Quantity
		vendorPrice = vp.Price
	}
	qtyPatterns := layered(vendorQty, genericQuantity)
	pricePatterns := layered(vendorPrice, genericPrice)

	var items []LineItem
	var (
		pendingQty   int
		pendingPrice float64
		haveQty      bool
		havePrice    bool
	)

	for _, line := range strings.Split(body, "\n") {
		priceMatch := matchFirst(line, pricePatterns)
		qtyMatch := matchFirst(line, qtyPatterns)
		if priceMatch == nil && qtyMatch == nil {
			continue
		}

		if priceMatch != nil {
			if v, err := parseAmount(priceMatch[1]); err == nil && v > 0 {
				pendingPrice = v
				havePrice = true
			}
		}
		if qtyMatch != nil {
			if n, ok := parsePositiveInt(qtyMatch[1]); ok {
				pendingQty = n
				haveQty = true
			}
		}

		if haveQty && havePrice {
			items = append(items, LineItem{
				Name:      strings.TrimSpace(line),
				Quantity:  pendingQty,
				UnitPrice: pendingPrice,
			})
			pendingQty, pendingPrice = 0, 0
			haveQty, havePrice = false, false
		}
	}

	return items
}

// inferSubjectItem derives a single item from the subject line for vendors
// that never enumerate items in the body. The vendor's item patterns run
// against the subject; quantity defaults to 1 when the matching pattern has
// no quantity group. The unit price is computed from the order total, since
// the total is the only per-purchase money signal these vendors expose.
func inferSubjectItem(subject string, total float64, vp *VendorProfile) []LineItem {
	if vp == nil {
		return nil
	}

	for _, re := range vp.Item {
		m := re.FindStringSubmatch(subject)
		if m == nil {
			continue
		}

		name := ""
		qty := 1
		if len(m) >= 3 && m[2] != "" {
			if n, ok := parsePositiveInt(m[1]); ok {
				qty = n
			}
			name = m[2]
		} else if len(m) >= 2 {
			name = m[1]
		}

		// A name like `3 x "USB Cable"` carries its own quantity prefix.
		if em := embeddedQtyRE.FindStringSubmatch(name); em != nil {
			if n, ok := parsePositiveInt(em[1]); ok {
				qty = n
				name = em[2]
			}
		}

		price := 0.0
		if total > 0 {
			price = round2(total / float64(qty))
		}

		return []LineItem{{
			Name:      strings.TrimSpace(name),
			Quantity:  qty,
			UnitPrice: price,
		}}
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package parse

// validate applies the vendor-sensitive acceptance rules.
//
// Vendors using the subject strategy never expose a reliable per-item total
// in parseable text, so a missing or zero total must not reject an otherwise
// well-formed order from that class. Every other class requires a total
// strictly greater than zero: a zero there means "unresolved", and an order
// with no money signal is not usable downstream.
func (e *Engine) validate(rec *OrderRecord, vp *VendorProfile, haveOrderNumber, haveTotal bool) bool {
	if !haveOrderNumber || rec.OrderNumber == "" || rec.OrderNumber == UnknownOrderNumber {
		return false
	}
	if len(rec.Items) == 0 {
		return false
	}
	if vp != nil && vp.Strategy == StrategySubject {
		return true
	}
	return haveTotal && rec.Total > 0
}

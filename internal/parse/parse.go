package parse

import (
	"time"
)

// UnknownOrderNumber is the sentinel rendered when no pattern resolved an
// order number. It means "insufficient data", never a fault.
const UnknownOrderNumber = "UNKNOWN"

// UnknownVendor is the sentinel rendered when no registered domain matched
// the sender address.
const UnknownVendor = "Unknown"

// OrderRecord is the normalized engine output. It is created once per
// successful extraction and never mutated afterwards; ownership passes to the
// caller.
type OrderRecord struct {
	OrderNumber string     `json:"order_number"`
	Vendor      string     `json:"vendor"`
	Total       float64    `json:"total"`
	Items       []LineItem `json:"items"`
	OrderDate   time.Time  `json:"order_date"`
}

// Engine runs the extraction pipeline against a shared vendor registry.
// Engines hold no per-call state and may be used concurrently.
type Engine struct {
	registry  *Registry
	allowlist map[string]bool
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAllowlist sets the sender allow-list used to boost vendor confidence.
func WithAllowlist(senders []string) Option {
	return func(e *Engine) {
		for _, s := range senders {
			e.allowlist[normalizeSender(s)] = true
		}
	}
}

// WithClock overrides the clock used to stamp OrderDate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an extraction engine over the given registry. A nil
// registry gets the built-in profiles.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	e := &Engine{
		registry:  registry,
		allowlist: make(map[string]bool),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse extracts a purchase order from a decoded email. It returns the
// validated record and true, or nil and false when no usable order was found.
// Rejection is a normal outcome: degenerate input (empty strings included)
// yields a rejection, never an error or panic.
func (e *Engine) Parse(sender, subject, body string) (*OrderRecord, bool) {
	rec, vp, haveOrderNumber, haveTotal := e.extract(sender, subject, body)
	if !e.validate(rec, vp, haveOrderNumber, haveTotal) {
		return nil, false
	}
	return rec, true
}

// extract runs the full pipeline without the acceptance gate, so the
// enrichment path can score best-effort records that validation would drop.
func (e *Engine) extract(sender, subject, body string) (rec *OrderRecord, vp *VendorProfile, haveOrderNumber, haveTotal bool) {
	vp = e.registry.Detect(sender)

	orderNumber, haveOrderNumber := extractOrderNumber(subject, body, vp)
	total, haveTotal := extractTotal(subject, body, vp)

	var items []LineItem
	if vp != nil && vp.Strategy == StrategySubject {
		items = inferSubjectItem(subject, total, vp)
	} else {
		items = scanItemLines(body, vp)
	}

	rec = &OrderRecord{
		OrderNumber: UnknownOrderNumber,
		Vendor:      UnknownVendor,
		Total:       0,
		Items:       items,
		OrderDate:   e.now().UTC(),
	}
	if haveOrderNumber {
		rec.OrderNumber = orderNumber
	}
	if vp != nil {
		rec.Vendor = vp.Name
	}
	if haveTotal {
		rec.Total = total
	}
	return rec, vp, haveOrderNumber, haveTotal
}

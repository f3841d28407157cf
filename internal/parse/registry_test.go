package parse

import (
	"testing"
)

func TestDetect_CaseInsensitiveContainment(t *testing.T) {
	r := NewRegistry()

	vp := r.Detect("ORDERS@MAIL.AMAZON.COM")
	if vp == nil || vp.Name != "Amazon" {
		t.Fatalf("Detect = %+v, want Amazon", vp)
	}
}

func TestDetect_NoMatchReturnsNil(t *testing.T) {
	r := NewRegistry()

	if vp := r.Detect("noreply@unknownshop.example"); vp != nil {
		t.Fatalf("Detect = %q, want nil", vp.Name)
	}
	if vp := r.Detect(""); vp != nil {
		t.Fatalf("Detect on empty sender = %q, want nil", vp.Name)
	}
}

func TestDetect_RegistryOrderWins(t *testing.T) {
	r := NewRegistry()
	err := r.MergeYAML([]byte(`
vendors:
  - name: AmazonClone
    domains: ["amazon.com"]
    strategy: lines
`))
	if err != nil {
		t.Fatalf("MergeYAML: %v", err)
	}

	// Built-ins are registered first; the clone never shadows them.
	vp := r.Detect("auto-confirm@amazon.com")
	if vp == nil || vp.Name != "Amazon" {
		t.Fatalf("Detect = %+v, want built-in Amazon", vp)
	}
}

func TestMergeYAML_CompilesPatterns(t *testing.T) {
	r := NewRegistry()
	err := r.MergeYAML([]byte(`
vendors:
  - name: Steam
    domains: ["steampowered.com"]
    strategy: subject
    patterns:
      order_number:
        - '(?i)order\s+#?([0-9]{8,})'
      total:
        - '(?i)total:\s*\$([\d,]+\.\d{2})'
      item:
        - '(?i)thank you for purchasing "([^"]+)"'
`))
	if err != nil {
		t.Fatalf("MergeYAML: %v", err)
	}

	vp := r.Detect("noreply@steampowered.com")
	if vp == nil || vp.Name != "Steam" {
		t.Fatalf("Detect = %+v, want Steam", vp)
	}
	if vp.Strategy != StrategySubject {
		t.Errorf("strategy = %q, want subject", vp.Strategy)
	}
	if len(vp.OrderNumber) != 1 || len(vp.Total) != 1 || len(vp.Item) != 1 {
		t.Errorf("pattern groups not compiled: %+v", vp)
	}
}

func TestMergeYAML_RejectsBadPattern(t *testing.T) {
	r := NewRegistry()
	before := len(r.Profiles())

	err := r.MergeYAML([]byte(`
vendors:
  - name: Broken
    domains: ["broken.example"]
    patterns:
      total:
        - '(['
`))
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if len(r.Profiles()) != before {
		t.Error("registry mutated despite load failure")
	}
}

func TestMergeYAML_RejectsMissingFields(t *testing.T) {
	r := NewRegistry()

	if err := r.MergeYAML([]byte("vendors:\n  - domains: [\"x.example\"]\n")); err == nil {
		t.Error("expected error for missing name")
	}
	if err := r.MergeYAML([]byte("vendors:\n  - name: NoDomains\n")); err == nil {
		t.Error("expected error for missing domains")
	}
	if err := r.MergeYAML([]byte("vendors:\n  - name: X\n    domains: [\"x.example\"]\n    strategy: magic\n")); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestFind(t *testing.T) {
	r := NewRegistry()
	if r.Find("Nike") == nil {
		t.Error("Find(Nike) = nil")
	}
	if r.Find("nosuch") != nil {
		t.Error("Find(nosuch) should be nil")
	}
}

func TestMergeYAML_CustomVendorParses(t *testing.T) {
	r := NewRegistry()
	err := r.MergeYAML([]byte(`
vendors:
  - name: Target
    domains: ["target.com"]
    strategy: lines
    patterns:
      order_number:
        - '(?i)order\s*#?\s*(\d{10,})'
      total:
        - '(?i)order total:\s*\$([\d,]+\.\d{2})'
`))
	if err != nil {
		t.Fatalf("MergeYAML: %v", err)
	}

	e := NewEngine(r)
	body := "Order # 1234567890123\nQty: 2\nBath Towels $15.00\nOrder Total: $30.00"
	rec, ok := e.Parse("orders@target.com", "Your Target order", body)
	if !ok {
		t.Fatal("expected custom vendor order to be accepted")
	}
	if rec.Vendor != "Target" {
		t.Errorf("vendor = %q, want Target", rec.Vendor)
	}
	if rec.OrderNumber != "1234567890123" {
		t.Errorf("order number = %q", rec.OrderNumber)
	}
	if rec.Total != 30.00 {
		t.Errorf("total = %v, want 30.00", rec.Total)
	}
}

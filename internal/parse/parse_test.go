package parse

import (
	"reflect"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestParse_AmazonSubjectOrder(t *testing.T) {
	e := NewEngine(nil, WithClock(fixedClock()))

	body := "Hello,\nOrder #123-4567890-1234567\nOrder Total: $45.00\nThanks for shopping."
	rec, ok := e.Parse(
		"auto-confirm@amazon.com",
		`Your Amazon.com order of 2 x "Wireless Mouse" has shipped`,
		body,
	)
	if !ok {
		t.Fatal("expected order to be accepted")
	}

	if rec.OrderNumber != "123-4567890-1234567" {
		t.Errorf("order number = %q, want 123-4567890-1234567", rec.OrderNumber)
	}
	if rec.Vendor != "Amazon" {
		t.Errorf("vendor = %q, want Amazon", rec.Vendor)
	}
	if rec.Total != 45.00 {
		t.Errorf("total = %v, want 45.00", rec.Total)
	}
	if len(rec.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(rec.Items))
	}
	item := rec.Items[0]
	if item.Name != "Wireless Mouse" {
		t.Errorf("item name = %q, want Wireless Mouse", item.Name)
	}
	if item.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", item.Quantity)
	}
	if item.UnitPrice != 22.50 {
		t.Errorf("unit price = %v, want 22.50", item.UnitPrice)
	}
}

func TestParse_AmazonZeroTotalStillAccepted(t *testing.T) {
	e := NewEngine(nil)

	// No parseable total anywhere: the subject class does not require one.
	rec, ok := e.Parse(
		"auto-confirm@amazon.com",
		`Your Amazon.com order of 1 x "HDMI Cable" has shipped`,
		"Order #111-2223334-5556667\nSee your account for details.",
	)
	if !ok {
		t.Fatal("expected order to be accepted without a total")
	}
	if rec.Total != 0 {
		t.Errorf("total = %v, want 0", rec.Total)
	}
	if rec.Items[0].UnitPrice != 0 {
		t.Errorf("unit price = %v, want 0 when total is unresolved", rec.Items[0].UnitPrice)
	}
}

func TestParse_DerivedUnitPriceRounds(t *testing.T) {
	e := NewEngine(nil)

	rec, ok := e.Parse(
		"auto-confirm@amazon.com",
		`Your Amazon.com order of 3 x "AA Batteries" has shipped`,
		"Order #111-2223334-5556667\nOrder Total: $10.00",
	)
	if !ok {
		t.Fatal("expected order to be accepted")
	}
	if rec.Items[0].UnitPrice != 3.33 {
		t.Errorf("unit price = %v, want 3.33 (10.00 / 3 rounded)", rec.Items[0].UnitPrice)
	}
}

func TestParse_EmbeddedQuantityPrefixWins(t *testing.T) {
	e := NewEngine(nil)

	// The captured item name itself starts with a quantity prefix; that more
	// specific split takes precedence over the outer capture.
	rec, ok := e.Parse(
		"auto-confirm@amazon.com",
		`Your Amazon.com order of 1 x "4 x USB-C Adapter" has shipped`,
		"Order #111-2223334-5556667\nOrder Total: $20.00",
	)
	if !ok {
		t.Fatal("expected order to be accepted")
	}
	item := rec.Items[0]
	if item.Quantity != 4 {
		t.Errorf("quantity = %d, want 4", item.Quantity)
	}
	if item.Name != "USB-C Adapter" {
		t.Errorf("item name = %q, want USB-C Adapter", item.Name)
	}
	if item.UnitPrice != 5.00 {
		t.Errorf("unit price = %v, want 5.00", item.UnitPrice)
	}
}

func TestParse_NikeNoOrderNumberRejected(t *testing.T) {
	e := NewEngine(nil)

	rec, ok := e.Parse(
		"noreply@nike.com",
		"Order Confirmation",
		"Thanks for your purchase.\nWe will ship soon.",
	)
	if ok {
		t.Fatalf("expected rejection, got %+v", rec)
	}
}

func TestParse_NikeLineItems(t *testing.T) {
	e := NewEngine(nil)

	body := `Order Number: NK-99881
Items:
Air Zoom Pegasus
Quantity: 2
Price: $120.00
Total: $240.00`
	rec, ok := e.Parse("orders@nike.com", "Your Nike order", body)
	if !ok {
		t.Fatal("expected order to be accepted")
	}
	if rec.OrderNumber != "NK-99881" {
		t.Errorf("order number = %q, want NK-99881", rec.OrderNumber)
	}
	if rec.Vendor != "Nike" {
		t.Errorf("vendor = %q, want Nike", rec.Vendor)
	}
	if rec.Total != 240.00 {
		t.Errorf("total = %v, want 240.00", rec.Total)
	}
	if len(rec.Items) == 0 {
		t.Fatal("expected at least one item")
	}
	if rec.Items[0].Quantity != 2 || rec.Items[0].UnitPrice != 120.00 {
		t.Errorf("item = %+v, want quantity 2 at 120.00", rec.Items[0])
	}
}

func TestParse_UnknownVendorRequiresTotal(t *testing.T) {
	e := NewEngine(nil)

	body := "Order: ABC-77421\nQty: 1\nWidget\nPrice: $9.50\nTotal: $9.50\n"
	rec, ok := e.Parse("shop@example.org", "Receipt", body)
	if !ok {
		t.Fatal("expected order to be accepted via generic patterns")
	}
	if rec.Vendor != UnknownVendor {
		t.Errorf("vendor = %q, want %q", rec.Vendor, UnknownVendor)
	}
	if rec.OrderNumber != "ABC-77421" {
		t.Errorf("order number = %q, want ABC-77421", rec.OrderNumber)
	}
	if rec.Total != 9.50 {
		t.Errorf("total = %v, want 9.50", rec.Total)
	}

	// Same order with no total line: the unknown-vendor class requires a
	// positive total, so the record is rejected.
	_, ok = e.Parse("shop@example.org", "Receipt", "Order: ABC-77421\nQty: 1\nWidget\nPrice: $9.50\n")
	if ok {
		t.Fatal("expected rejection when the total never resolves")
	}
}

func TestParse_EmptyInputRejectsCleanly(t *testing.T) {
	e := NewEngine(nil)
	if _, ok := e.Parse("", "", ""); ok {
		t.Fatal("expected rejection for empty input")
	}
}

func TestParse_Idempotent(t *testing.T) {
	e := NewEngine(nil, WithClock(fixedClock()))

	sender := "auto-confirm@amazon.com"
	subject := `Your Amazon.com order of 2 x "Wireless Mouse" has shipped`
	body := "Order #123-4567890-1234567\nOrder Total: $45.00"

	first, ok1 := e.Parse(sender, subject, body)
	second, ok2 := e.Parse(sender, subject, body)
	if !ok1 || !ok2 {
		t.Fatal("expected both parses to succeed")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parses differ:\n%+v\n%+v", first, second)
	}
}

func TestScanItemLines_SplitAcrossLines(t *testing.T) {
	body := `Items:
Qty: 3
Price: $9.99
`
	items := scanItemLines(body, nil)
	if len(items) != 1 {
		t.Fatalf("items = %d, want exactly 1", len(items))
	}
	item := items[0]
	if item.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", item.Quantity)
	}
	if item.UnitPrice != 9.99 {
		t.Errorf("price = %v, want 9.99", item.UnitPrice)
	}
	// The line that completes the pair names the item.
	if item.Name != "Price: $9.99" {
		t.Errorf("name = %q, want the flushing line's trimmed text", item.Name)
	}
}

func TestScanItemLines_QuantityAloneEmitsNothing(t *testing.T) {
	items := scanItemLines("Qty: 5\nsome descriptive text\n", nil)
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0 when price never resolves", len(items))
	}
}

func TestScanItemLines_MultipleItems(t *testing.T) {
	body := `2 x Running Shorts $25.00
1 x Water Bottle $12.50`
	items := scanItemLines(body, nil)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Quantity != 2 || items[0].UnitPrice != 25.00 {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Quantity != 1 || items[1].UnitPrice != 12.50 {
		t.Errorf("second item = %+v", items[1])
	}
}

func TestExtractTotal_ThousandsSeparators(t *testing.T) {
	total, ok := extractTotal("", "Order Total: $1,234.56", nil)
	if !ok {
		t.Fatal("expected total to resolve")
	}
	if total != 1234.56 {
		t.Errorf("total = %v, want 1234.56", total)
	}
}

func TestExtractOrderNumber_SubjectBeforeBody(t *testing.T) {
	num, ok := extractOrderNumber("Your order #SUBJ-12345", "Order: BODY-67890", nil)
	if !ok {
		t.Fatal("expected order number to resolve")
	}
	if num != "SUBJ-12345" {
		t.Errorf("order number = %q, want the subject capture", num)
	}
}

func TestExtractOrderNumber_ProseDoesNotCapture(t *testing.T) {
	// "Order Confirmation" is prose, not "order: <id>"; it must not yield
	// "Confirmation" as an order number.
	if num, ok := extractOrderNumber("Order Confirmation", "", nil); ok {
		t.Fatalf("unexpected order number %q from prose subject", num)
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hurttlocker/mailorder/internal/config"
	"github.com/hurttlocker/mailorder/internal/store"
)

func TestSplitGlobalFlags(t *testing.T) {
	g, rest, err := splitGlobalFlags([]string{
		"--db", "/tmp/orders.db",
		"--account=work",
		"inbox/",
		"--recursive",
		"--vendors", "vendors.yaml",
	})
	if err != nil {
		t.Fatalf("splitGlobalFlags: %v", err)
	}
	if g.dbPath != "/tmp/orders.db" {
		t.Errorf("dbPath = %q", g.dbPath)
	}
	if g.account != "work" {
		t.Errorf("account = %q", g.account)
	}
	if g.vendors != "vendors.yaml" {
		t.Errorf("vendors = %q", g.vendors)
	}
	if len(rest) != 2 || rest[0] != "inbox/" || rest[1] != "--recursive" {
		t.Errorf("rest = %v", rest)
	}
}

func TestBuildEngine_WithVendorsFile(t *testing.T) {
	dir := t.TempDir()
	vendorsPath := filepath.Join(dir, "vendors.yaml")
	vendors := `vendors:
  - name: Steam
    domains: [steampowered.com]
    strategy: lines
    patterns:
      order_number:
        - 'Order number:\s*([A-Z0-9]+)'
      total:
        - 'Total:\s*\$?([\d.]+)'
`
	if err := os.WriteFile(vendorsPath, []byte(vendors), 0o644); err != nil {
		t.Fatalf("writing vendors file: %v", err)
	}

	cfg := config.ResolvedConfig{}
	cfg.VendorsFile.Value = vendorsPath

	engine, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	if engine == nil {
		t.Fatal("nil engine")
	}

	rec, ok := engine.Parse("noreply@steampowered.com", "Thank you for your Steam purchase",
		"Order number: ABC123456\n1 x Portal 3 - $19.99\nTotal: $19.99\n")
	if !ok {
		t.Fatal("custom vendor order should be accepted")
	}
	if rec.Vendor != "Steam" {
		t.Errorf("vendor = %q", rec.Vendor)
	}
	if rec.OrderNumber != "ABC123456" {
		t.Errorf("order number = %q", rec.OrderNumber)
	}
}

func TestBuildEngine_BadVendorsFile(t *testing.T) {
	dir := t.TempDir()
	vendorsPath := filepath.Join(dir, "vendors.yaml")
	if err := os.WriteFile(vendorsPath, []byte("vendors:\n  - name: Broken\n"), 0o644); err != nil {
		t.Fatalf("writing vendors file: %v", err)
	}

	cfg := config.ResolvedConfig{}
	cfg.VendorsFile.Value = vendorsPath

	if _, err := buildEngine(cfg); err == nil {
		t.Fatal("expected error for incomplete vendor profile")
	}
}

func TestRunProcess_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "orders.db")

	inbox := filepath.Join(dir, "inbox")
	if err := os.Mkdir(inbox, 0o755); err != nil {
		t.Fatal(err)
	}
	email := "From: auto-confirm@amazon.com\n" +
		"Subject: Your Amazon.com order of 2 x \"Wireless Mouse\"\n" +
		"\n" +
		"Order #123-4567890-1234567\n" +
		"Order Total: $45.00\n"
	if err := os.WriteFile(filepath.Join(inbox, "order.txt"), []byte(email), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runProcess([]string{inbox, "--db", dbPath}); err != nil {
		t.Fatalf("runProcess: %v", err)
	}

	s, err := store.NewStore(store.StoreConfig{DBPath: dbPath})
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s.Close()

	order, err := s.GetOrder(context.Background(), store.DefaultAccount, "123-4567890-1234567", "Amazon")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order == nil {
		t.Fatal("order not stored")
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

package mailbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadFile_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "order.txt", `From: auto-confirm@amazon.com
Subject: Your Amazon.com order of 2 x "Wireless Mouse" has shipped
Date: 2026-03-13T18:00:00Z
Message-Id: <abc123@mail.amazon.com>

Order #123-4567890-1234567
Order Total: $45.00
`)

	msgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}

	m := msgs[0]
	if m.From != "auto-confirm@amazon.com" {
		t.Errorf("from = %q", m.From)
	}
	if !strings.Contains(m.Subject, "Wireless Mouse") {
		t.Errorf("subject = %q", m.Subject)
	}
	if m.ID != "abc123@mail.amazon.com" {
		t.Errorf("id = %q, want message-id without brackets", m.ID)
	}
	want := time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC)
	if !m.Date.Equal(want) {
		t.Errorf("date = %v, want %v", m.Date, want)
	}
	if !strings.Contains(m.Body, "Order #123-4567890-1234567") {
		t.Errorf("body = %q", m.Body)
	}
	if m.SourceFile != path {
		t.Errorf("source file = %q, want %q", m.SourceFile, path)
	}
}

func TestLoadFile_TextWithoutHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bare.txt", "Order #99999\nTotal: $10.00\n")

	msgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Body, "Order #99999") {
		t.Errorf("body lost the headerless content: %q", msgs[0].Body)
	}
	if msgs[0].ID == "" {
		t.Error("expected a generated fallback id")
	}
}

func TestLoadFile_JSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.json", `[
  {"id": "m1", "from": "orders@nike.com", "subject": "Order", "date": "2026-03-10T08:00:00Z", "body": "Order Number: NK-1"},
  {"id": "m2", "from": "orders@nike.com", "subject": "Order", "body": "Order Number: NK-2"}
]`)

	msgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("ids = %q, %q", msgs[0].ID, msgs[1].ID)
	}
}

func TestLoadFile_JSONHTMLBody(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "html.json",
		`{"from": "a@b.example", "subject": "s", "html": "<html><body><p>Order Total: $45.00</p><p>Qty: 2</p></body></html>"}`)

	msgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	body := msgs[0].Body
	if strings.Contains(body, "<") {
		t.Errorf("tags not stripped: %q", body)
	}
	if !strings.Contains(body, "Order Total: $45.00") {
		t.Errorf("text lost: %q", body)
	}
}

func TestLoadFile_YAMLMessages(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.yaml", `messages:
  - id: y1
    from: orders@nike.com
    subject: Your order
    body: "Order Number: NK-77"
  - id: y2
    from: shop@example.org
    subject: Receipt
    body: "Order: R-12345"
`)

	msgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[1].Subject != "Receipt" {
		t.Errorf("subject = %q", msgs[1].Subject)
	}
}

func TestLoadDir_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "From: a@b.example\nSubject: s\n\nbody\n")
	writeFile(t, dir, "bad.json", "{not json")

	msgs, errs := LoadDir(dir, LoadOptions{})
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1 for the bad file", len(errs))
	}
}

func TestLoadDir_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "top.txt", "From: a@b.example\nSubject: top\n\nbody\n")
	writeFile(t, sub, "nested.txt", "From: a@b.example\nSubject: nested\n\nbody\n")

	flat, _ := LoadDir(dir, LoadOptions{})
	if len(flat) != 1 {
		t.Errorf("non-recursive messages = %d, want 1", len(flat))
	}

	deep, _ := LoadDir(dir, LoadOptions{Recursive: true})
	if len(deep) != 2 {
		t.Errorf("recursive messages = %d, want 2", len(deep))
	}
}

func TestNormalizeHTML(t *testing.T) {
	src := `<html><head><style>p { color: red; }</style></head>
<body><div>Order Number: NK-99881</div><div>Qty: 2</div><div>Price: $120.00 &amp; up</div></body></html>`

	text := NormalizeHTML(src)
	if strings.Contains(text, "<") || strings.Contains(text, "color: red") {
		t.Errorf("markup leaked: %q", text)
	}
	for _, want := range []string{"Order Number: NK-99881", "Qty: 2", "Price: $120.00 & up"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
	// Block closers must preserve line structure for the item scanner.
	if !strings.Contains(text, "\n") {
		t.Errorf("line structure collapsed: %q", text)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hurttlocker/mailorder/internal/mailbox"
	"github.com/hurttlocker/mailorder/internal/mcp"
	"github.com/hurttlocker/mailorder/internal/parse"
	"github.com/hurttlocker/mailorder/internal/store"
	"github.com/mark3labs/mcp-go/server"
)

func runParse(args []string) error {
	g, rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}

	var paths []string
	var from, subject, body string
	format := "text"
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--format" && i+1 < len(rest):
			i++
			format = strings.ToLower(rest[i])
		case strings.HasPrefix(rest[i], "--format="):
			format = strings.ToLower(strings.TrimPrefix(rest[i], "--format="))
		case rest[i] == "--from" && i+1 < len(rest):
			i++
			from = rest[i]
		case strings.HasPrefix(rest[i], "--from="):
			from = strings.TrimPrefix(rest[i], "--from=")
		case rest[i] == "--subject" && i+1 < len(rest):
			i++
			subject = rest[i]
		case strings.HasPrefix(rest[i], "--subject="):
			subject = strings.TrimPrefix(rest[i], "--subject=")
		case rest[i] == "--body" && i+1 < len(rest):
			i++
			body = rest[i]
		case strings.HasPrefix(rest[i], "--body="):
			body = strings.TrimPrefix(rest[i], "--body=")
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			paths = append(paths, rest[i])
		}
	}
	if len(paths) == 0 && from == "" {
		return fmt.Errorf("usage: mailorder parse <path> [--format text|json], or mailorder parse --from <sender> [--subject s] [--body b]")
	}

	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if from != "" {
		parsed := engine.ParseEmail("", from, subject, body, time.Now().UTC())
		if format == "json" {
			data, err := json.MarshalIndent(parsed, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			printParsed(parsed)
		}
	}

	for _, path := range paths {
		msgs, err := mailbox.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		for _, msg := range msgs {
			received := msg.Date
			if received.IsZero() {
				received = time.Now().UTC()
			}
			parsed := engine.ParseEmail(msg.ID, msg.From, msg.Subject, msg.Body, received)

			if format == "json" {
				data, err := json.MarshalIndent(parsed, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				continue
			}

			printParsed(parsed)
		}
	}
	return nil
}

func printParsed(p *parse.ParsedEmail) {
	status := "rejected"
	if p.Accepted {
		status = "accepted"
	}
	fmt.Printf("%s  %s\n", status, p.Subject)
	fmt.Printf("  order:      %s\n", p.Record.OrderNumber)
	fmt.Printf("  vendor:     %s\n", p.Record.Vendor)
	fmt.Printf("  total:      %.2f\n", p.Record.Total)
	for _, it := range p.Record.Items {
		fmt.Printf("  item:       %dx %s @ %.2f\n", it.Quantity, it.Name, it.UnitPrice)
	}
	if p.Forwarded {
		if p.OriginalSender != "" {
			fmt.Printf("  forwarded:  yes (originally from %s)\n", p.OriginalSender)
		} else {
			fmt.Println("  forwarded:  yes")
		}
	}
	fmt.Printf("  confidence: %.2f (order %.2f, vendor %.2f, items %.2f)\n",
		p.Confidence.Overall, p.Confidence.OrderNumber, p.Confidence.Vendor, p.Confidence.Items)
	fmt.Println()
}

func runOrders(args []string) error {
	g, rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}

	opts := store.ListOpts{Limit: 20}
	format := "table"
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--vendor" && i+1 < len(rest):
			i++
			opts.Vendor = rest[i]
		case strings.HasPrefix(rest[i], "--vendor="):
			opts.Vendor = strings.TrimPrefix(rest[i], "--vendor=")
		case rest[i] == "--limit" && i+1 < len(rest):
			i++
			opts.Limit, _ = strconv.Atoi(rest[i])
		case strings.HasPrefix(rest[i], "--limit="):
			opts.Limit, _ = strconv.Atoi(strings.TrimPrefix(rest[i], "--limit="))
		case rest[i] == "--offset" && i+1 < len(rest):
			i++
			opts.Offset, _ = strconv.Atoi(rest[i])
		case strings.HasPrefix(rest[i], "--offset="):
			opts.Offset, _ = strconv.Atoi(strings.TrimPrefix(rest[i], "--offset="))
		case rest[i] == "--format" && i+1 < len(rest):
			i++
			format = strings.ToLower(rest[i])
		case strings.HasPrefix(rest[i], "--format="):
			format = strings.ToLower(strings.TrimPrefix(rest[i], "--format="))
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orders, err := s.ListOrders(context.Background(), cfg.Account.Value, opts)
	if err != nil {
		return fmt.Errorf("listing orders: %w", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(orders)
	case "table":
		if len(orders) == 0 {
			fmt.Println("No orders stored.")
			return nil
		}
		fmt.Printf("%-22s %-12s %10s  %-10s %s\n", "ORDER", "VENDOR", "TOTAL", "DATE", "ITEMS")
		for _, o := range orders {
			var items []string
			for _, it := range o.Items {
				items = append(items, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
			}
			fmt.Printf("%-22s %-12s %10.2f  %-10s %s\n",
				o.OrderNumber, o.Vendor, o.Total, o.OrderDate.Format("2006-01-02"), strings.Join(items, ", "))
		}
		fmt.Printf("\n%d orders\n", len(orders))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, table)", format)
	}
}

func runInventory(args []string) error {
	g, rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}

	item := ""
	format := "table"
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--item" && i+1 < len(rest):
			i++
			item = rest[i]
		case strings.HasPrefix(rest[i], "--item="):
			item = strings.TrimPrefix(rest[i], "--item=")
		case rest[i] == "--format" && i+1 < len(rest):
			i++
			format = strings.ToLower(rest[i])
		case strings.HasPrefix(rest[i], "--format="):
			format = strings.ToLower(strings.TrimPrefix(rest[i], "--format="))
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			item = rest[i]
		}
	}

	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	account := cfg.Account.Value

	var entries []*store.InventoryEntry
	if item != "" {
		entry, err := s.GetInventory(ctx, account, store.InventoryKey(item))
		if err != nil {
			return fmt.Errorf("looking up inventory: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("no inventory entry for %q", item)
		}
		entries = []*store.InventoryEntry{entry}
	} else {
		entries, err = s.ListInventory(ctx, account)
		if err != nil {
			return fmt.Errorf("listing inventory: %w", err)
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "table":
		if len(entries) == 0 {
			fmt.Println("No inventory recorded.")
			return nil
		}
		fmt.Printf("%-28s %5s %10s  %-10s %s\n", "ITEM", "QTY", "LAST $", "UPDATED", "ORDERS")
		for _, e := range entries {
			fmt.Printf("%-28s %5d %10.2f  %-10s %s\n",
				e.Name, e.Quantity, e.LastOrderPrice, e.LastUpdated.Format("2006-01-02"), strings.Join(e.OrderRefs, ", "))
		}
		fmt.Printf("\n%d items\n", len(entries))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, table)", format)
	}
}

func runStats(args []string) error {
	g, rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}
	vacuum := false
	for _, arg := range rest {
		switch arg {
		case "--vacuum":
			vacuum = true
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if vacuum {
		if err := s.Vacuum(context.Background()); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Println("Vacuum complete.")
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	fmt.Printf("Orders:     %d\n", stats.OrderCount)
	fmt.Printf("Items:      %d\n", stats.ItemCount)
	fmt.Printf("Inventory:  %d\n", stats.InventoryCount)
	fmt.Printf("Messages:   %d\n", stats.MessageCount)
	fmt.Printf("DB size:    %s\n", formatBytes(stats.DBSizeBytes))
	return nil
}

func runMCP(args []string) error {
	g, _, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(mcp.ServerConfig{
		Store:   s,
		Engine:  engine,
		Account: cfg.Account.Value,
		Version: version,
	})
	return server.ServeStdio(srv)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

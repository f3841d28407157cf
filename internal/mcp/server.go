// Package mcp provides a Model Context Protocol server for mailorder.
//
// It exposes the extraction pipeline (parse, process, orders, inventory,
// stats) as MCP tools, plus a stats resource. Runs over stdio transport
// for Claude Desktop, Cursor and similar clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hurttlocker/mailorder/internal/parse"
	"github.com/hurttlocker/mailorder/internal/process"
	"github.com/hurttlocker/mailorder/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Engine  *parse.Engine
	Account string
	Version string
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines.
// SQLite (even with WAL) supports only one writer at a time, and concurrent
// reads during writes can return stale results. A global mutex ensures
// correct ordering: a process call completes before an orders call sees
// its data.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all mailorder tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	engine := cfg.Engine
	if engine == nil {
		engine = parse.NewEngine(nil)
	}
	account := cfg.Account
	if account == "" {
		account = store.DefaultAccount
	}

	s := server.NewMCPServer(
		"mailorder",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerParseTool(s, engine)
	registerProcessTool(s, engine, cfg.Store, account)
	registerOrdersTool(s, cfg.Store, account)
	registerInventoryTool(s, cfg.Store, account)
	registerStatsTool(s, cfg.Store)

	registerStatsResource(s, cfg.Store)

	return s
}

// --- Tools ---

func registerParseTool(s *server.MCPServer, engine *parse.Engine) {
	tool := mcp.NewTool("mailorder_parse",
		mcp.WithDescription("Parse a single email (sender, subject, body) into a structured purchase order. Returns the extracted order, accept/reject decision, confidence scores, and forwarding metadata. Nothing is stored."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Sender address, e.g. 'auto-confirm@amazon.com'"),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject line"),
		),
		mcp.WithString("body",
			mcp.Description("Email body as plain text"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sender, err := req.RequireString("from")
		if err != nil {
			return mcp.NewToolResultError("from is required"), nil
		}

		subject := ""
		if v, err := req.RequireString("subject"); err == nil {
			subject = v
		}
		body := ""
		if v, err := req.RequireString("body"); err == nil {
			body = v
		}

		parsed := engine.ParseEmail("", sender, subject, body, time.Now().UTC())
		data, _ := json.MarshalIndent(parsed, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerProcessTool(s *server.MCPServer, engine *parse.Engine, st store.Store, account string) {
	tool := mcp.NewTool("mailorder_process",
		mcp.WithDescription("Process a file or directory of exported emails: parse each message, store accepted orders, accumulate inventory, and log outcomes. Already-processed messages are skipped."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory of exported emails (.txt, .eml, .html, .json, .yaml)"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Descend into subdirectories (default: false)"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Parse but do not write to the store (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError("path is required"), nil
		}

		recursive := false
		if v, err := req.RequireBool("recursive"); err == nil {
			recursive = v
		}
		dryRun := false
		if v, err := req.RequireBool("dry_run"); err == nil {
			dryRun = v
		}

		proc := process.NewProcessor(engine, st, account)
		result, err := proc.ProcessPath(ctx, path, recursive, process.Options{DryRun: dryRun})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("process error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerOrdersTool(s *server.MCPServer, st store.Store, account string) {
	tool := mcp.NewTool("mailorder_orders",
		mcp.WithDescription("List stored purchase orders, newest first, with their line items. Optionally filter by vendor."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("vendor",
			mcp.Description("Filter by vendor name, e.g. 'Amazon'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of orders to return (default: 20, max: 100)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of orders to skip for pagination (default: 0)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		opts := store.ListOpts{Limit: 20}

		if limitVal, err := req.RequireFloat("limit"); err == nil {
			limit := int(limitVal)
			if limit > 100 {
				limit = 100
			}
			if limit > 0 {
				opts.Limit = limit
			}
		}
		if offsetVal, err := req.RequireFloat("offset"); err == nil && offsetVal > 0 {
			opts.Offset = int(offsetVal)
		}
		if vendor, err := req.RequireString("vendor"); err == nil && vendor != "" {
			opts.Vendor = vendor
		}

		orders, err := st.ListOrders(ctx, account, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("orders error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(orders, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerInventoryTool(s *server.MCPServer, st store.Store, account string) {
	tool := mcp.NewTool("mailorder_inventory",
		mcp.WithDescription("Show the accumulated inventory ledger: one row per purchased item (normalized name), with total quantity, last unit price, and the orders that contributed."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("item",
			mcp.Description("Look up a single item by name (normalized before lookup). Empty = full ledger."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if item, err := req.RequireString("item"); err == nil && item != "" {
			entry, err := st.GetInventory(ctx, account, store.InventoryKey(item))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("inventory error: %v", err)), nil
			}
			if entry == nil {
				return mcp.NewToolResultText(fmt.Sprintf("No inventory entry for %q", item)), nil
			}
			data, _ := json.MarshalIndent(entry, "", "  ")
			return mcp.NewToolResultText(string(data)), nil
		}

		entries, err := st.ListInventory(ctx, account)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inventory error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(entries, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("mailorder_stats",
		mcp.WithDescription("Get store statistics: order, item, inventory and processed-message counts plus database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"mailorder://stats",
		"Order Store Statistics",
		mcp.WithResourceDescription("Order, item, inventory and processed-message counts plus database size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

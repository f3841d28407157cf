package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hurttlocker/mailorder/internal/config"
	"github.com/hurttlocker/mailorder/internal/parse"
	"github.com/hurttlocker/mailorder/internal/process"
	"github.com/hurttlocker/mailorder/internal/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:])
	case "parse":
		err = runParse(os.Args[2:])
	case "orders":
		err = runOrders(os.Args[2:])
	case "inventory":
		err = runInventory(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("mailorder %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are accepted by every command and consumed before
// command-specific flag parsing.
type globalFlags struct {
	configPath string
	dbPath     string
	account    string
	vendors    string
}

// splitGlobalFlags pulls the shared flags out of args and returns the rest.
func splitGlobalFlags(args []string) (globalFlags, []string, error) {
	var g globalFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			i++
			g.configPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			g.configPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--db" && i+1 < len(args):
			i++
			g.dbPath = args[i]
		case strings.HasPrefix(args[i], "--db="):
			g.dbPath = strings.TrimPrefix(args[i], "--db=")
		case args[i] == "--account" && i+1 < len(args):
			i++
			g.account = args[i]
		case strings.HasPrefix(args[i], "--account="):
			g.account = strings.TrimPrefix(args[i], "--account=")
		case args[i] == "--vendors" && i+1 < len(args):
			i++
			g.vendors = args[i]
		case strings.HasPrefix(args[i], "--vendors="):
			g.vendors = strings.TrimPrefix(args[i], "--vendors=")
		default:
			rest = append(rest, args[i])
		}
	}
	return g, rest, nil
}

func resolveConfig(g globalFlags) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath: g.configPath,
		CLIDBPath:  g.dbPath,
		CLIAccount: g.account,
		CLIVendors: g.vendors,
	})
}

// buildEngine assembles the extraction engine: builtin vendor profiles,
// optional custom profiles from the vendors file, and the sender allowlist.
func buildEngine(cfg config.ResolvedConfig) (*parse.Engine, error) {
	registry := parse.NewRegistry()
	if path := cfg.VendorsFile.Value; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading vendors file: %w", err)
		}
		if err := registry.MergeYAML(data); err != nil {
			return nil, fmt.Errorf("loading vendors file %s: %w", path, err)
		}
	}

	var opts []parse.Option
	if len(cfg.Allowlist) > 0 {
		opts = append(opts, parse.WithAllowlist(cfg.Allowlist))
	}
	return parse.NewEngine(registry, opts...), nil
}

func openStore(cfg config.ResolvedConfig) (store.Store, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func runProcess(args []string) error {
	g, rest, err := splitGlobalFlags(args)
	if err != nil {
		return err
	}

	var paths []string
	recursive := false
	dryRun := false
	for _, arg := range rest {
		switch {
		case arg == "--recursive" || arg == "-r":
			recursive = true
		case arg == "--dry-run" || arg == "-n":
			dryRun = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			paths = append(paths, arg)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("usage: mailorder process <path> [--recursive] [--dry-run]")
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

	proc := process.NewProcessor(engine, s, cfg.Account.Value)
	ctx := context.Background()

	if dryRun {
		fmt.Println("Dry run mode — no changes will be written")
		fmt.Println()
	}

	total := &process.Result{}
	opts := process.Options{
		DryRun: dryRun,
		ProgressFn: func(current, totalN int, subject string) {
			fmt.Printf("  [%d/%d] %s\n", current, totalN, subject)
		},
	}

	for _, path := range paths {
		fmt.Printf("Processing %s...\n", path)
		result, err := proc.ProcessPath(ctx, path, recursive, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
			continue
		}
		total.Add(result)
	}

	fmt.Println()
	fmt.Print(process.FormatResult(total))
	return nil
}

func runConfig(args []string) error {
	if len(args) == 0 || args[0] != "show" {
		return fmt.Errorf("usage: mailorder config show")
	}
	g, _, err := splitGlobalFlags(args[1:])
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	printResolved := func(name string, v config.ResolvedValue) {
		if v.From != "" {
			fmt.Printf("%-14s %s  (%s: %s)\n", name, v.Value, v.Source, v.From)
		} else {
			fmt.Printf("%-14s %s  (%s)\n", name, v.Value, v.Source)
		}
	}
	fmt.Printf("%-14s %s\n", "config file", cfg.ConfigPath)
	printResolved("db path", cfg.DBPath)
	printResolved("account", cfg.Account)
	if cfg.VendorsFile.Value != "" {
		printResolved("vendors file", cfg.VendorsFile)
	}
	if len(cfg.Allowlist) > 0 {
		fmt.Printf("%-14s %s  (%s)\n", "allowlist", strings.Join(cfg.Allowlist, ", "), cfg.AllowlistSource)
	}
	return nil
}

func printUsage() {
	fmt.Printf(`mailorder %s — Purchase-order extraction from exported email

Usage:
  mailorder <command> [arguments]

Commands:
  process <path>      Parse exported emails and store the extracted orders
  parse <path>        Parse emails and print the result without storing
  orders              List stored orders with their line items
  inventory           Show the accumulated inventory ledger
  stats               Show store statistics (--vacuum to compact first)
  config show         Print the resolved configuration and where each value came from
  mcp                 Run the MCP server on stdio
  version             Print version

Process Flags:
  -r, --recursive     Recursively process directories
  -n, --dry-run       Parse without writing to the store

Global Flags:
      --config <path> Config file (default ~/.mailorder/config.yaml)
      --db <path>     Database path
      --account <id>  Account namespace (default "default")
      --vendors <path> Custom vendor profiles (YAML)
  -h, --help          Show this help message
  -v, --version       Print version

Documentation:
  https://github.com/hurttlocker/mailorder
`, version)
}

// Package parse provides rule-based purchase-order extraction for mailorder.
//
// The extraction engine turns unstructured order-confirmation email text into
// typed order records without an LLM or external API:
// - Vendor detection from the sender address
// - Layered pattern matching (vendor-specific patterns before generic fallbacks)
// - Per-field heuristics for order number, total, quantities and prices
// - Two item-assembly strategies (line scanning vs subject-line inference)
// - Validation plus an advisory confidence score
//
// The engine is a pure function over its string inputs and the static vendor
// registry: no I/O, no state between calls, safe for concurrent use.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy selects how items are assembled for a vendor.
type Strategy string

const (
	// StrategyLines scans the body line by line, accumulating an item once
	// both a quantity and a price have been resolved.
	StrategyLines Strategy = "lines"

	// StrategySubject infers a single item from the subject line and derives
	// its unit price from the order total.
	StrategySubject Strategy = "subject"
)

// VendorProfile describes one vendor: the sender domains that identify it and
// the field-specific pattern groups used to extract its order data. Profiles
// are immutable after registry construction.
type VendorProfile struct {
	Name     string
	Domains  []string
	Strategy Strategy

	OrderNumber []*regexp.Regexp
	Total       []*regexp.Regexp
	Item        []*regexp.Regexp
	Quantity    []*regexp.Regexp
	Price       []*regexp.Regexp
}

// Registry holds the ordered set of vendor profiles. It is built once at
// startup and shared by reference across concurrent Parse calls.
type Registry struct {
	profiles []*VendorProfile
}

// NewRegistry returns a registry seeded with the built-in vendor profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: builtinProfiles()}
}

// Profiles returns the registered profiles in detection order.
func (r *Registry) Profiles() []*VendorProfile {
	return r.profiles
}

// Find returns the profile with the given name, or nil.
func (r *Registry) Find(name string) *VendorProfile {
	for _, p := range r.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Detect maps a sender address to a vendor profile using case-insensitive
// domain containment, in registry order. First match wins; nil means no
// vendor was recognized and extraction proceeds with generic patterns only.
func (r *Registry) Detect(sender string) *VendorProfile {
	addr := strings.ToLower(sender)
	for _, p := range r.profiles {
		for _, domain := range p.Domains {
			if strings.Contains(addr, strings.ToLower(domain)) {
				return p
			}
		}
	}
	return nil
}

func builtinProfiles() []*VendorProfile {
	return []*VendorProfile{
		{
			Name:     "Amazon",
			Domains:  []string{"amazon.com"},
			Strategy: StrategySubject,
			OrderNumber: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Order #\s*(\d{3}-\d{7}-\d{7})`),
			},
			Total: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Order Total:\s*\$\s*([\d,]+\.\d{2})`),
			},
			Item: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Your Amazon\.com order of (\d+) x "([^"]+)"`),
			},
			Quantity: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Quantity:\s*(\d+)`),
			},
			Price: []*regexp.Regexp{
				regexp.MustCompile(`\$\s*([\d,]+\.\d{2})`),
			},
		},
		{
			Name:     "Nike",
			Domains:  []string{"nike.com"},
			Strategy: StrategyLines,
			OrderNumber: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Order Number:?\s*([A-Z0-9-]+)`),
				regexp.MustCompile(`(?i)Confirmation Number:?\s*([A-Z0-9-]+)`),
			},
			Total: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Total:\s*\$\s*([\d,]+\.\d{2})`),
				regexp.MustCompile(`(?i)Amount:\s*\$\s*([\d,]+\.\d{2})`),
			},
			Item: []*regexp.Regexp{
				regexp.MustCompile(`(?is)Style:\s*(.*?)(?:Size:|$)`),
			},
			Quantity: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Quantity:\s*(\d+)`),
				regexp.MustCompile(`(?i)QTY:\s*(\d+)`),
			},
			Price: []*regexp.Regexp{
				regexp.MustCompile(`(?i)Price:\s*\$\s*([\d,]+\.\d{2})`),
				regexp.MustCompile(`\$\s*([\d,]+\.\d{2})`),
			},
		},
	}
}

// profileSpec is the YAML shape for user-supplied vendor profiles.
type profileSpec struct {
	Name     string   `yaml:"name"`
	Domains  []string `yaml:"domains"`
	Strategy string   `yaml:"strategy"`
	Patterns struct {
		OrderNumber []string `yaml:"order_number"`
		Total       []string `yaml:"total"`
		Item        []string `yaml:"item"`
		Quantity    []string `yaml:"quantity"`
		Price       []string `yaml:"price"`
	} `yaml:"patterns"`
}

type profilesFile struct {
	Vendors []profileSpec `yaml:"vendors"`
}

// MergeYAML parses vendor profiles from YAML and appends them after the
// built-ins. Built-in profiles keep detection priority. Every pattern is
// compiled at load time; a profile with a bad pattern rejects the whole file
// so a partial registry never goes live.
func (r *Registry) MergeYAML(data []byte) error {
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing vendor profiles: %w", err)
	}

	merged := make([]*VendorProfile, 0, len(f.Vendors))
	for i, spec := range f.Vendors {
		p, err := compileProfile(spec)
		if err != nil {
			return fmt.Errorf("vendor %d (%s): %w", i, spec.Name, err)
		}
		merged = append(merged, p)
	}

	r.profiles = append(r.profiles, merged...)
	return nil
}

func compileProfile(spec profileSpec) (*VendorProfile, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if len(spec.Domains) == 0 {
		return nil, fmt.Errorf("missing domains")
	}

	strategy := Strategy(strings.ToLower(strings.TrimSpace(spec.Strategy)))
	switch strategy {
	case StrategyLines, StrategySubject:
	case "":
		strategy = StrategyLines
	default:
		return nil, fmt.Errorf("unknown strategy %q", spec.Strategy)
	}

	p := &VendorProfile{
		Name:     name,
		Domains:  spec.Domains,
		Strategy: strategy,
	}

	var err error
	if p.OrderNumber, err = compilePatterns(spec.Patterns.OrderNumber); err != nil {
		return nil, fmt.Errorf("order_number: %w", err)
	}
	if p.Total, err = compilePatterns(spec.Patterns.Total); err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	if p.Item, err = compilePatterns(spec.Patterns.Item); err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	if p.Quantity, err = compilePatterns(spec.Patterns.Quantity); err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	if p.Price, err = compilePatterns(spec.Patterns.Price); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	return p, nil
}

func compilePatterns(raw []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, src := range raw {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

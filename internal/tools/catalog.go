// Package tools defines the tool-execution boundary: the catalog of named
// finance operations the orchestrator may invoke, the Invoker contract, and
// a local in-process backend for running without an external service.
package tools

import (
	"fmt"
	"os"
	"strings"

	_ "embed"

	"go.yaml.in/yaml/v3"
)

// Tool name constants for the finance catalog.
const (
	// ToolGetFormula returns the HPL formula for a hierarchy.
	ToolGetFormula = "get_hpl_formula"
	// ToolUpdateFormula replaces the HPL formula for a hierarchy.
	ToolUpdateFormula = "update_hpl_formula"
	// ToolGetHierarchies lists all available hierarchies.
	ToolGetHierarchies = "get_all_hierarchies"
	// ToolGetAccounts lists all account numbers.
	ToolGetAccounts = "get_all_accounts"
	// ToolGetAccountPnL returns P&L components for an account.
	ToolGetAccountPnL = "get_account_pnl"
	// ToolCalculateHPL calculates hypothetical P&L for an account under a
	// hierarchy. This is the result-sensitive calculation whose output the
	// validator independently cross-checks.
	ToolCalculateHPL = "calculate_hypothetical_pnl"
)

// Hierarchy values. FHC and PRA are complementary classifications: a
// calculation under one is cross-checked by recalculating under the other.
const (
	HierarchyFHC = "FHC"
	HierarchyPRA = "PRA"
)

// ComplementHierarchy returns the other hierarchy, used for cross-checks.
func ComplementHierarchy(h string) string {
	if strings.EqualFold(h, HierarchyFHC) {
		return HierarchyPRA
	}
	return HierarchyFHC
}

// Param describes one tool parameter.
type Param struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Tool describes one named operation: its signature and documentation.
// This is static metadata, not part of run state.
type Tool struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Params      []Param `yaml:"params"`
}

// Signature renders the tool as "name(a: type, b: type)" for prompts.
func (t Tool) Signature() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(parts, ", "))
}

// Catalog is the set of tools available to a run.
type Catalog struct {
	Tools []Tool `yaml:"tools"`
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog returns the built-in finance tool catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		// The embedded catalog is validated by tests; a parse failure here
		// is a build defect.
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if len(c.Tools) == 0 {
		return nil, fmt.Errorf("catalog defines no tools")
	}
	seen := make(map[string]bool, len(c.Tools))
	for _, t := range c.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog contains a tool with no name")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate tool %q in catalog", t.Name)
		}
		seen[t.Name] = true
	}
	return &c, nil
}

// Names returns the tool names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Tools))
	for i, t := range c.Tools {
		names[i] = t.Name
	}
	return names
}

// Get returns the tool with the given name, or false if absent.
func (c *Catalog) Get(name string) (Tool, bool) {
	for _, t := range c.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Has returns true if the catalog contains the named tool.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Describe renders the full catalog as prompt-ready documentation, one
// "- signature: description" line per tool.
func (c *Catalog) Describe() string {
	var b strings.Builder
	for _, t := range c.Tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Signature(), t.Description)
	}
	return b.String()
}

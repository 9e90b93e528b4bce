package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AccountPnL holds the P&L components of one account.
type AccountPnL struct {
	Trading  float64
	Dividend float64
	Interest float64
	Fees     float64
}

// Local is an in-process tool-execution backend over sample finance data.
// It exists so the CLI and tests can exercise a run end to end without an
// external tool service; a production deployment points the engine at a
// remote backend instead. Invocations are idempotent: repeated calls with
// identical arguments return identical results.
type Local struct {
	mu       sync.RWMutex
	formulas map[string]string
	accounts map[string]AccountPnL
}

// NewLocal creates a local backend seeded with sample accounts and the
// default formulas for both hierarchies.
func NewLocal() *Local {
	return &Local{
		formulas: map[string]string{
			HierarchyFHC: "Hypothetical P&L = Trading P&L + Dividend P&L + Interest P&L - Fees",
			HierarchyPRA: "Hypothetical P&L = Trading P&L + Dividend P&L",
		},
		accounts: map[string]AccountPnL{
			"ACCT-001": {Trading: 125000.50, Dividend: 8400.00, Interest: 1200.75, Fees: 950.25},
			"ACCT-002": {Trading: -23500.00, Dividend: 12750.30, Interest: 890.10, Fees: 1100.00},
			"ACCT-003": {Trading: 67800.25, Dividend: 3200.45, Interest: 2150.00, Fees: 780.50},
			"ACCT-004": {Trading: 412000.00, Dividend: 25600.80, Interest: 5400.25, Fees: 3200.75},
		},
	}
}

// Invoke dispatches a named tool call against the sample data.
func (l *Local) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch name {
	case ToolGetFormula:
		return l.getFormula(args)
	case ToolUpdateFormula:
		return l.updateFormula(args)
	case ToolGetHierarchies:
		return l.getHierarchies()
	case ToolGetAccounts:
		return l.getAccounts()
	case ToolGetAccountPnL:
		return l.getAccountPnL(args)
	case ToolCalculateHPL:
		return l.calculateHPL(args)
	default:
		return "", NewInvokeError(name, "unknown tool")
	}
}

func (l *Local) getFormula(args map[string]any) (string, error) {
	h, err := l.hierarchyArg(ToolGetFormula, args)
	if err != nil {
		return "", err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("%s formula: %s", h, l.formulas[h]), nil
}

func (l *Local) updateFormula(args map[string]any) (string, error) {
	h, err := l.hierarchyArg(ToolUpdateFormula, args)
	if err != nil {
		return "", err
	}
	formula := StringArg(args, "new_formula")
	if formula == "" {
		return "", NewInvokeError(ToolUpdateFormula, "missing required argument new_formula")
	}
	if !strings.Contains(formula, "Hypothetical P&L =") {
		return "", NewInvokeError(ToolUpdateFormula,
			"new_formula must be the complete equation starting with %q", "Hypothetical P&L =")
	}
	l.mu.Lock()
	l.formulas[h] = formula
	l.mu.Unlock()
	return fmt.Sprintf("Updated %s formula to: %s", h, formula), nil
}

func (l *Local) getHierarchies() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.formulas))
	for h := range l.formulas {
		names = append(names, h)
	}
	sort.Strings(names)
	return "Available hierarchies: " + strings.Join(names, ", "), nil
}

func (l *Local) getAccounts() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.accounts))
	for a := range l.accounts {
		names = append(names, a)
	}
	sort.Strings(names)
	return "Accounts: " + strings.Join(names, ", "), nil
}

func (l *Local) getAccountPnL(args map[string]any) (string, error) {
	acct, err := l.accountArg(ToolGetAccountPnL, args)
	if err != nil {
		return "", err
	}
	l.mu.RLock()
	pnl := l.accounts[acct]
	l.mu.RUnlock()
	return fmt.Sprintf("%s P&L components: Trading P&L %.2f, Dividend P&L %.2f, Interest P&L %.2f, Fees %.2f",
		acct, pnl.Trading, pnl.Dividend, pnl.Interest, pnl.Fees), nil
}

func (l *Local) calculateHPL(args map[string]any) (string, error) {
	acct, err := l.accountArg(ToolCalculateHPL, args)
	if err != nil {
		return "", err
	}
	h, err := l.hierarchyArg(ToolCalculateHPL, args)
	if err != nil {
		return "", err
	}

	l.mu.RLock()
	pnl := l.accounts[acct]
	formula := l.formulas[h]
	l.mu.RUnlock()

	total := evaluateFormula(formula, pnl)
	return fmt.Sprintf("Hypothetical P&L for %s under %s: %.2f (formula: %s)",
		acct, h, total, formula), nil
}

// evaluateFormula sums the P&L components named on the right-hand side of
// the formula, honoring a leading minus sign per term.
func evaluateFormula(formula string, pnl AccountPnL) float64 {
	rhs := formula
	if idx := strings.Index(formula, "="); idx >= 0 {
		rhs = formula[idx+1:]
	}

	components := map[string]float64{
		"trading":  pnl.Trading,
		"dividend": pnl.Dividend,
		"interest": pnl.Interest,
		"fees":     pnl.Fees,
		"fee":      pnl.Fees,
	}

	total := 0.0
	sign := 1.0
	for _, tok := range strings.Fields(rhs) {
		switch tok {
		case "+":
			sign = 1.0
			continue
		case "-":
			sign = -1.0
			continue
		}
		if v, ok := components[strings.ToLower(strings.TrimSuffix(tok, ","))]; ok {
			total += sign * v
			sign = 1.0
		}
	}
	return total
}

func (l *Local) hierarchyArg(tool string, args map[string]any) (string, error) {
	h := strings.ToUpper(StringArg(args, "hierarchy"))
	switch h {
	case HierarchyFHC, HierarchyPRA:
		return h, nil
	case "":
		return "", NewInvokeError(tool, "missing required argument hierarchy")
	default:
		return "", NewInvokeError(tool, "unknown hierarchy %q (expected FHC or PRA)", h)
	}
}

func (l *Local) accountArg(tool string, args map[string]any) (string, error) {
	acct := StringArg(args, "account_number")
	if acct == "" {
		return "", NewInvokeError(tool, "missing required argument account_number")
	}
	l.mu.RLock()
	_, ok := l.accounts[acct]
	l.mu.RUnlock()
	if !ok {
		return "", NewInvokeError(tool, "unknown account %q", acct)
	}
	return acct, nil
}

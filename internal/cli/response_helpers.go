package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"
	"cafe_admin/internal/nav"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type response struct {
	Command string
	Message string
	Results any
}

type jsonResponse struct {
	Command string `json:"command"`
	Message string `json:"message,omitempty"`
	Results any    `json:"results,omitempty"`
}

type stockReport struct {
	Stocks []cafe.Stock        `json:"stocks"`
	Check  *cafe.QuantityCheck `json:"quantity_check,omitempty"`
}

type whoami struct {
	Admin     bool            `json:"user_is_admin"`
	ExpiresAt string          `json:"expires_at,omitempty"`
	User      json.RawMessage `json:"user,omitempty"`
}

func (r *Runner) writeResponse(resp response) error {
	r.logResponse(resp)
	if r.options.JSON {
		return r.writeJSONResponse(resp)
	}
	return r.writeHumanResponse(resp)
}

func (r *Runner) writeJSONResponse(resp response) error {
	payload := jsonResponse{
		Command: resp.Command,
		Message: strings.TrimSpace(resp.Message),
		Results: resp.Results,
	}

	enc := json.NewEncoder(r.out)
	return enc.Encode(payload)
}

func (r *Runner) writeHumanResponse(resp response) error {
	if msg := strings.TrimSpace(resp.Message); msg != "" {
		fmt.Fprintln(r.out, msg)
	}
	if resp.Results != nil {
		r.writeResults(resp.Results)
	}
	return nil
}

func (r *Runner) writeResults(results any) {
	switch v := results.(type) {
	case []cafe.Category:
		fmt.Fprintln(r.out, "Categories:")
		if len(v) == 0 {
			fmt.Fprintln(r.out, "- (no categories)")
			return
		}
		for i, c := range v {
			fmt.Fprintf(r.out, "%d) %s (id=%d)\n", i+1, c.Name, c.ID)
		}
	case []cafe.Product:
		fmt.Fprintln(r.out, "Products:")
		if len(v) == 0 {
			fmt.Fprintln(r.out, "- (no products)")
			return
		}
		for i, p := range v {
			fmt.Fprintf(r.out, "%d) %s (id=%d, code=%s, price=%s, category=%s)\n",
				i+1, p.Name, p.ID, p.ProductCode, r.money(p.UserPrice), p.Category.Name)
		}
	case []cafe.Table:
		fmt.Fprintln(r.out, "Tables:")
		if len(v) == 0 {
			fmt.Fprintln(r.out, "- (no tables)")
			return
		}
		for i, t := range v {
			fmt.Fprintf(r.out, "%d) %s (id=%s, %s)\n", i+1, t.TableName, t.TableNumber, availability(t))
		}
	case stockReport:
		r.writeStocks(v.Stocks)
		if v.Check != nil {
			fmt.Fprintln(r.out)
			r.writeQuantityCheck(*v.Check)
		}
	case cafe.QuantityCheck:
		r.writeQuantityCheck(v)
	case []nav.MenuEntry:
		fmt.Fprintln(r.out, "Menu:")
		for _, entry := range v {
			fmt.Fprintf(r.out, "- %s: open %s\n", entry.Name, entry.Path)
		}
	case whoami:
		role := "staff"
		if v.Admin {
			role = "admin"
		}
		fmt.Fprintf(r.out, "- role: %s\n", role)
		if v.ExpiresAt != "" {
			fmt.Fprintf(r.out, "- session until: %s\n", v.ExpiresAt)
		}
	case orderView:
		r.writeOrderView(v)
	default:
		fmt.Fprintln(r.out, "- (unsupported result format)")
	}
}

func (r *Runner) writeStocks(stocks []cafe.Stock) {
	fmt.Fprintln(r.out, "Stock:")
	if len(stocks) == 0 {
		fmt.Fprintln(r.out, "- (no stock entries)")
		return
	}
	for i, s := range stocks {
		fmt.Fprintf(r.out, "%d) %s (id=%d, home price=%s, initial=%d, remaining=%d)\n",
			i+1, s.Product.Name, s.ID, r.money(s.HomePrice), s.InitialQuantity, s.RemainingQuantity)
	}
}

func (r *Runner) writeQuantityCheck(check cafe.QuantityCheck) {
	fmt.Fprintln(r.out, "Quantity check:")
	if msg := strings.TrimSpace(check.Message); msg != "" {
		fmt.Fprintf(r.out, "- %s\n", msg)
	}
	if len(check.Entries) == 0 && check.Message == "" {
		fmt.Fprintln(r.out, "- (nothing to report)")
		return
	}
	for _, e := range check.Entries {
		fmt.Fprintf(r.out, "- %s: %d remaining\n", e.Product, e.RemainingQuantity)
	}
}

func (r *Runner) logResponse(resp response) {
	r.logger.Debug("response",
		zap.String("command", resp.Command),
		zap.String("message", strings.TrimSpace(resp.Message)),
		zap.Int("results_count", countResults(resp.Results)),
	)
}

func (r *Runner) money(d decimal.Decimal) string {
	currency := r.cfg.Currency
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return currency + d.StringFixed(2)
}

func availability(t cafe.Table) string {
	if t.Available {
		return "available"
	}
	return "occupied"
}

func countResults(results any) int {
	switch v := results.(type) {
	case []cafe.Category:
		return len(v)
	case []cafe.Product:
		return len(v)
	case []cafe.Table:
		return len(v)
	case stockReport:
		return len(v.Stocks)
	case cafe.QuantityCheck:
		return len(v.Entries)
	default:
		return 0
	}
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/nav"

	"go.uber.org/zap"
)

const helpText = `Commands:
  login <email> <password>        log in and store the session
  logout                          clear the session
  whoami                          show the current session
  menu                            list admin screens
  open <path>                     open a screen by route, e.g. open /catogery
  category list|create|update|delete
      category create <name>
      category update <id> <name>
      category delete <id>
  product list|create|update|delete
      product create <name> <price> <code> <category-id>
      product update <id> <name> <price> <code> <category-id>
      product delete <id>
  table list|create|update|delete
      table create <number> <name>
      table update <id> <number> <name>
      table delete <id>
  stock list|check|create|update|delete
      stock create <product-id> <home-price> <initial-qty>
      stock update <id> <product-id> <home-price> <initial-qty> [added-qty]
      stock delete <id>
  tables                          list tables for ordering
  order <table-id> [action ...]   open a table's order screen
  bill <bill-id> [--print <file>] show a bill; --print writes the printable part
  help                            this text
  exit                            leave the shell`

func (r *Runner) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	name, rest := strings.ToLower(args[0]), args[1:]

	switch name {
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
		return nil
	case "exit", "quit":
		return errExit
	case "login":
		return r.login(ctx, rest)
	case "logout":
		return r.logout()
	case "whoami":
		return r.whoami()
	case "menu":
		if err := r.requireAdmin(nav.PathAdminProfile); err != nil {
			return err
		}
		return r.writeResponse(response{Command: "menu", Results: nav.Menu()})
	case "open":
		if len(rest) != 1 {
			return alertf("Usage: open <path>")
		}
		return r.open(ctx, rest[0])
	case "category", "catogery":
		return r.categoryScreen(ctx, rest)
	case "product":
		return r.productScreen(ctx, rest)
	case "table":
		return r.tableScreen(ctx, rest)
	case "stock":
		return r.stockScreen(ctx, rest)
	case "tables":
		return r.orderTables(ctx)
	case "order":
		if len(rest) == 0 {
			return alertf("Usage: order <table-id> [action ...]")
		}
		return r.tableOrder(ctx, rest[0], rest[1:])
	case "bill":
		return r.billCommand(ctx, rest)
	default:
		return alertf("Unknown command %q. Type 'help' for commands.", args[0])
	}
}

// requireAdmin runs path through the route guard and refuses redirected routes.
func (r *Runner) requireAdmin(path string) error {
	res := r.guard.Resolve(path, r.auth.IsAdmin())
	if res.Redirected {
		r.logger.Info("route redirected", zap.String("path", path), zap.String("to", res.Path))
		return errLoginRequired
	}
	return nil
}

func (r *Runner) login(ctx context.Context, args []string) error {
	var email, password string
	if len(args) > 0 {
		email = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}

	dest, err := trackCall(r.logger, "login", map[string]any{"email": email}, func() (string, error) {
		return r.auth.Login(ctx, email, password)
	})
	if err != nil {
		if detail := cafe.DetailOf(err); detail != "" {
			return &userError{Message: "Error: " + detail, Err: err}
		}
		return failure(err, "Login failed. Check your email and password.")
	}

	if dest == nav.PathAdminProfile {
		if err := r.writeResponse(response{Command: "login", Message: "Logged in as admin."}); err != nil {
			return err
		}
		return r.open(ctx, dest)
	}
	return r.writeResponse(response{
		Command: "login",
		Message: "Logged in. This account has no admin rights, so admin screens stay locked.",
	})
}

func (r *Runner) logout() error {
	if _, err := r.auth.Logout(); err != nil {
		return failure(err, "Failed to clear the session.")
	}
	return r.writeResponse(response{Command: "logout", Message: "Logged out."})
}

func (r *Runner) whoami() error {
	sess, err := r.auth.Current()
	if err != nil {
		return err
	}
	info := whoami{Admin: sess.UserIsAdmin, User: sess.User}
	if !sess.ExpiresAt.IsZero() {
		info.ExpiresAt = formatExpiry(sess.ExpiresAt)
	}
	return r.writeResponse(response{Command: "whoami", Results: info})
}

func (r *Runner) writeMenu() {
	r.writeResults(nav.Menu())
}

// open navigates to a route the way the sidebar does, including the guard's
// redirect to the login screen.
func (r *Runner) open(ctx context.Context, path string) error {
	res := r.guard.Resolve(path, r.auth.IsAdmin())
	if res.Redirected {
		r.logger.Info("route redirected", zap.String("path", path), zap.String("to", res.Path))
		fmt.Fprintf(r.out, "%s requires an admin session; redirected to %s.\n", nav.Clean(path), res.Path)
	}

	switch res.Route.Screen {
	case nav.ScreenLogin:
		fmt.Fprintln(r.out, "Login: use login <email> <password>")
		return nil
	case nav.ScreenAdminProfile:
		if err := r.whoami(); err != nil {
			return err
		}
		return r.writeResponse(response{Command: "menu", Results: nav.Menu()})
	case nav.ScreenCategory:
		return r.categoryScreen(ctx, nil)
	case nav.ScreenProduct:
		return r.productScreen(ctx, nil)
	case nav.ScreenTable:
		return r.tableScreen(ctx, nil)
	case nav.ScreenStock:
		return r.stockScreen(ctx, nil)
	case nav.ScreenOrder:
		return r.orderTables(ctx)
	case nav.ScreenSingleTable:
		return r.tableOrder(ctx, res.Params["id"], nil)
	case nav.ScreenSingleBill:
		return r.billCommand(ctx, []string{res.Params["id"]})
	default:
		return alertf("Page not found: %s", res.Path)
	}
}

package cli

import (
	"context"
	"strings"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/nav"
)

// mutate runs a create/update/delete, then refetches the screen's list so the
// user always sees the backend's view after a change.
func (r *Runner) mutate(command, success, fallback string, args map[string]any, fn func() error, list func() error) error {
	if err := trackAction(r.logger, command, args, fn); err != nil {
		return failure(err, fallback)
	}
	if err := r.writeResponse(response{Command: command, Message: success}); err != nil {
		return err
	}
	return list()
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "list", nil
	}
	return strings.ToLower(args[0]), args[1:]
}

func (r *Runner) categoryScreen(ctx context.Context, args []string) error {
	if err := r.requireAdmin(nav.PathCategory); err != nil {
		return err
	}

	list := func() error {
		categories, err := trackCall(r.logger, "category list", nil, func() ([]cafe.Category, error) {
			return r.client.ListCategories(ctx)
		})
		if err != nil {
			return failure(err, "Failed to load categories.")
		}
		return r.writeResponse(response{Command: "category list", Results: categories})
	}

	action, rest := subcommand(args)
	switch action {
	case "list":
		return list()
	case "create":
		name := strings.Join(rest, " ")
		if !allPresent(name) {
			return alertf("Category cannot be empty")
		}
		return r.mutate("category create", "Category added successfully!", "Failed to add category. Please try again.",
			map[string]any{"name": name},
			func() error { return r.client.CreateCategory(ctx, cafe.CategoryInput{Name: name}) },
			list)
	case "update":
		if len(rest) < 1 {
			return alertf("Usage: category update <id> <name>")
		}
		id, err := parseID("category id", rest[0])
		if err != nil {
			return err
		}
		name := strings.Join(rest[1:], " ")
		if !allPresent(name) {
			return alertf("Category name cannot be empty")
		}
		return r.mutate("category update", "Category updated successfully!", "Failed to update category. Please try again.",
			map[string]any{"id": id, "name": name},
			func() error { return r.client.UpdateCategory(ctx, id, cafe.CategoryInput{Name: name}) },
			list)
	case "delete":
		if len(rest) != 1 {
			return alertf("Usage: category delete <id>")
		}
		id, err := parseID("category id", rest[0])
		if err != nil {
			return err
		}
		return r.mutate("category delete", "Category deleted successfully!", "Failed to delete category. Please try again.",
			map[string]any{"id": id},
			func() error { return r.client.DeleteCategory(ctx, id) },
			list)
	default:
		return alertf("Unknown category action %q", action)
	}
}

func (r *Runner) productScreen(ctx context.Context, args []string) error {
	if err := r.requireAdmin(nav.PathProduct); err != nil {
		return err
	}

	list := func() error {
		products, err := trackCall(r.logger, "product list", nil, func() ([]cafe.Product, error) {
			return r.client.ListProducts(ctx)
		})
		if err != nil {
			return failure(err, "Failed to load products.")
		}
		return r.writeResponse(response{Command: "product list", Results: products})
	}

	action, rest := subcommand(args)
	switch action {
	case "list":
		return list()
	case "create":
		in, err := productInput(rest)
		if err != nil {
			return err
		}
		return r.mutate("product create", "Product created successfully!", "Failed to create product. Please try again.",
			map[string]any{"name": in.Name, "code": in.ProductCode},
			func() error { return r.client.CreateProduct(ctx, in) },
			list)
	case "update":
		if len(rest) < 1 {
			return alertf("Usage: product update <id> <name> <price> <code> <category-id>")
		}
		id, err := parseID("product id", rest[0])
		if err != nil {
			return err
		}
		in, err := productInput(rest[1:])
		if err != nil {
			return err
		}
		return r.mutate("product update", "Product updated successfully!", "Failed to update product. Please try again.",
			map[string]any{"id": id, "name": in.Name},
			func() error { return r.client.UpdateProduct(ctx, id, in) },
			list)
	case "delete":
		if len(rest) != 1 {
			return alertf("Usage: product delete <id>")
		}
		id, err := parseID("product id", rest[0])
		if err != nil {
			return err
		}
		return r.mutate("product delete", "Product deleted successfully!", "Failed to delete product. Please try again.",
			map[string]any{"id": id},
			func() error { return r.client.DeleteProduct(ctx, id) },
			list)
	default:
		return alertf("Unknown product action %q", action)
	}
}

func productInput(args []string) (cafe.ProductInput, error) {
	if len(args) != 4 || !allPresent(args...) {
		return cafe.ProductInput{}, alertf("All fields are required.")
	}
	price, err := parsePrice("price", args[1])
	if err != nil {
		return cafe.ProductInput{}, err
	}
	categoryID, err := parseID("category id", args[3])
	if err != nil {
		return cafe.ProductInput{}, err
	}
	return cafe.ProductInput{
		Name:        strings.TrimSpace(args[0]),
		UserPrice:   price,
		ProductCode: strings.TrimSpace(args[2]),
		Category:    categoryID,
	}, nil
}

func (r *Runner) tableScreen(ctx context.Context, args []string) error {
	if err := r.requireAdmin(nav.PathCreateTable); err != nil {
		return err
	}

	list := func() error { return r.listTables(ctx, "table list") }

	action, rest := subcommand(args)
	switch action {
	case "list":
		return list()
	case "create":
		if len(rest) != 2 || !allPresent(rest...) {
			return alertf("Both fields are required.")
		}
		in := cafe.TableInput{TableNumber: strings.TrimSpace(rest[0]), TableName: strings.TrimSpace(rest[1])}
		return r.mutate("table create", "Table created successfully!", "Failed to create table. Please try again.",
			map[string]any{"number": in.TableNumber, "name": in.TableName},
			func() error { return r.client.CreateTable(ctx, in) },
			list)
	case "update":
		if len(rest) != 3 || !allPresent(rest...) {
			return alertf("Both fields are required.")
		}
		id := strings.TrimSpace(rest[0])
		in := cafe.TableInput{TableNumber: strings.TrimSpace(rest[1]), TableName: strings.TrimSpace(rest[2])}
		return r.mutate("table update", "Table updated successfully!", "Failed to update table. Please try again.",
			map[string]any{"id": id, "number": in.TableNumber, "name": in.TableName},
			func() error { return r.client.UpdateTable(ctx, id, in) },
			list)
	case "delete":
		if len(rest) != 1 || !allPresent(rest...) {
			return alertf("Usage: table delete <id>")
		}
		id := strings.TrimSpace(rest[0])
		return r.mutate("table delete", "Table deleted successfully!", "Failed to delete table. Please try again.",
			map[string]any{"id": id},
			func() error { return r.client.DeleteTable(ctx, id) },
			list)
	default:
		return alertf("Unknown table action %q", action)
	}
}

func (r *Runner) listTables(ctx context.Context, command string) error {
	tables, err := trackCall(r.logger, command, nil, func() ([]cafe.Table, error) {
		return r.client.ListTables(ctx)
	})
	if err != nil {
		return failure(err, "Failed to load tables.")
	}
	return r.writeResponse(response{Command: command, Results: tables})
}

func (r *Runner) stockScreen(ctx context.Context, args []string) error {
	if err := r.requireAdmin(nav.PathStock); err != nil {
		return err
	}

	list := func() error {
		stocks, err := trackCall(r.logger, "stock list", nil, func() ([]cafe.Stock, error) {
			return r.client.ListStocks(ctx)
		})
		if err != nil {
			return failure(err, "Failed to load stock.")
		}
		screen := stockReport{Stocks: stocks}

		// The report is informational; the list still shows when it fails.
		check, err := trackCall(r.logger, "quantity check", nil, func() (cafe.QuantityCheck, error) {
			return r.client.QuantityCheck(ctx)
		})
		if err == nil {
			screen.Check = &check
		}
		return r.writeResponse(response{Command: "stock list", Results: screen})
	}

	action, rest := subcommand(args)
	switch action {
	case "list":
		return list()
	case "check":
		check, err := trackCall(r.logger, "quantity check", nil, func() (cafe.QuantityCheck, error) {
			return r.client.QuantityCheck(ctx)
		})
		if err != nil {
			return failure(err, "Failed to fetch quantity check.")
		}
		return r.writeResponse(response{Command: "stock check", Results: check})
	case "create":
		if len(rest) != 3 || !allPresent(rest...) {
			return alertf("All fields are required.")
		}
		in, err := stockInput(rest)
		if err != nil {
			return err
		}
		return r.mutate("stock create", "Stock created successfully!", "Failed to create stock. Please try again.",
			map[string]any{"product": in.Product, "initial_quantity": in.InitialQuantity},
			func() error { return r.client.CreateStock(ctx, in) },
			list)
	case "update":
		if (len(rest) != 4 && len(rest) != 5) || !allPresent(rest...) {
			return alertf("All fields are required for update.")
		}
		id, err := parseID("stock id", rest[0])
		if err != nil {
			return err
		}
		in, err := stockInput(rest[1:4])
		if err != nil {
			return err
		}
		if len(rest) == 5 {
			added, err := parseCount("added quantity", rest[4])
			if err != nil {
				return err
			}
			in.AddedQuantity = &added
		}
		return r.mutate("stock update", "Stock updated successfully!", "Failed to update stock.",
			map[string]any{"id": id, "product": in.Product},
			func() error { return r.client.UpdateStock(ctx, id, in) },
			list)
	case "delete":
		if len(rest) != 1 {
			return alertf("Usage: stock delete <id>")
		}
		id, err := parseID("stock id", rest[0])
		if err != nil {
			return err
		}
		return r.mutate("stock delete", "Stock deleted successfully!", "Failed to delete stock.",
			map[string]any{"id": id},
			func() error { return r.client.DeleteStock(ctx, id) },
			list)
	default:
		return alertf("Unknown stock action %q", action)
	}
}

func stockInput(args []string) (cafe.StockInput, error) {
	productID, err := parseID("product id", args[0])
	if err != nil {
		return cafe.StockInput{}, err
	}
	price, err := parsePrice("home price", args[1])
	if err != nil {
		return cafe.StockInput{}, err
	}
	qty, err := parseCount("initial quantity", args[2])
	if err != nil {
		return cafe.StockInput{}, err
	}
	return cafe.StockInput{Product: productID, HomePrice: price, InitialQuantity: qty}, nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/nav"
	"cafe_admin/internal/tableorder"
)

const orderHelpText = `Table actions:
  view                          show the open order and the draft
  refresh                       reload the open order
  products                      list products that can be ordered
  add <product-id> <qty>        add a line to the draft
  draft                         show the draft
  send [<product-id>:<qty> ...] send the draft as a new order
  append [<product-id>:<qty> ...]
                                add the draft to the open order
  edit <item-id>                edit the quantity of an order line
  qty <n>                       set the quantity of the line being edited
  save | cancel                 save or drop the edit
  delete <item-id>              remove an order line
  bill                          create the bill for the open order
  back                          leave the table`

type orderView struct {
	TableID string           `json:"table_id"`
	State   string           `json:"state"`
	Orders  []cafe.Order     `json:"orders"`
	Draft   []draftLine      `json:"draft,omitempty"`
	Editing *tableorder.Edit `json:"editing,omitempty"`
}

type draftLine struct {
	Product  int    `json:"product"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func viewOf(w *tableorder.Workflow) orderView {
	view := orderView{
		TableID: w.TableID(),
		State:   w.State().String(),
		Orders:  w.Orders(),
	}
	for _, item := range w.Draft() {
		view.Draft = append(view.Draft, draftLine{
			Product:  item.Product,
			Name:     w.ProductName(item.Product),
			Quantity: item.Quantity,
		})
	}
	if edit, ok := w.Editing(); ok {
		view.Editing = &edit
	}
	return view
}

func (r *Runner) writeOrderView(v orderView) {
	fmt.Fprintf(r.out, "Table %s\n", v.TableID)
	if len(v.Orders) == 0 {
		fmt.Fprintln(r.out, "- (no open order)")
	}
	for _, order := range v.Orders {
		fmt.Fprintf(r.out, "Order %s (id=%d)\n", order.OrderNumber, order.ID)
		if len(order.Items) == 0 {
			fmt.Fprintln(r.out, "- (no items)")
		}
		for i, item := range order.Items {
			marker := ""
			if v.Editing != nil && v.Editing.ItemID == item.ID {
				marker = fmt.Sprintf(" <- editing, new quantity %d", v.Editing.Quantity)
			}
			fmt.Fprintf(r.out, "%d) %s x%d @ %s = %s (item=%d)%s\n",
				i+1, item.Product, item.Quantity, r.money(item.Price), r.money(item.OrderProductPrice), item.ID, marker)
		}
		fmt.Fprintf(r.out, "Total: %s\n", r.money(order.TotalPrice))
	}
	if len(v.Draft) > 0 {
		fmt.Fprintln(r.out, "Draft:")
		for _, line := range v.Draft {
			fmt.Fprintf(r.out, "- %s x%d (product=%d)\n", line.Name, line.Quantity, line.Product)
		}
	}
}

func (r *Runner) orderTables(ctx context.Context) error {
	if err := r.requireAdmin(nav.PathOrder); err != nil {
		return err
	}
	if err := r.listTables(ctx, "tables"); err != nil {
		return err
	}
	if !r.options.JSON {
		fmt.Fprintln(r.out, "Open a table with: order <table-id>")
	}
	return nil
}

// tableOrder opens the order screen of one table. With actions it runs them
// and returns; otherwise the shell stays on the table until "back".
func (r *Runner) tableOrder(ctx context.Context, tableID string, actions []string) error {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return alertf("Usage: order <table-id> [action ...]")
	}
	if err := r.requireAdmin(nav.TablePath(tableID)); err != nil {
		return err
	}

	w := tableorder.New(r.client, tableID, tableorder.Options{OrderTakenBy: r.options.OrderTakenBy}, r.base)
	err := trackAction(r.logger, "order load", map[string]any{"table": tableID}, func() error {
		return w.Load(ctx)
	})
	if err != nil {
		return failure(err, "Failed to load the table order.")
	}

	if len(actions) > 0 {
		_, err := r.orderAction(ctx, w, actions)
		return err
	}

	if err := r.writeResponse(response{Command: "order", Results: viewOf(w)}); err != nil {
		return err
	}
	if !r.interactive {
		return nil
	}
	return r.orderShell(ctx, w)
}

func (r *Runner) orderShell(ctx context.Context, w *tableorder.Workflow) error {
	fmt.Fprintln(r.out, "Type 'help' for table actions, 'back' to leave.")
	for {
		line, ok, err := r.prompt(fmt.Sprintf("table %s> ", w.TableID()))
		if err != nil || !ok {
			return err
		}
		if line == "" {
			continue
		}

		args, err := splitArgs(line)
		if err != nil {
			r.alert(err)
			continue
		}

		done, err := r.orderAction(ctx, w, args)
		if err != nil {
			r.alert(err)
		}
		if done || ctx.Err() != nil {
			return nil
		}
	}
}

// orderAction runs one table action. done reports that the table screen was
// left, either explicitly or by navigating to a new bill.
func (r *Runner) orderAction(ctx context.Context, w *tableorder.Workflow, args []string) (bool, error) {
	action, rest := strings.ToLower(args[0]), args[1:]
	logArgs := map[string]any{"table": w.TableID(), "args": rest}

	switch action {
	case "help", "?":
		fmt.Fprintln(r.out, orderHelpText)
	case "back", "exit", "quit":
		return true, nil
	case "view", "show":
		return false, r.showOrder(w, "")
	case "refresh":
		if err := trackAction(r.logger, "order refresh", logArgs, func() error { return w.Refresh(ctx) }); err != nil {
			return false, failure(err, "Failed to load the table order.")
		}
		return false, r.showOrder(w, "")
	case "products", "menu":
		return false, r.writeResponse(response{Command: "order products", Results: w.Products()})
	case "add":
		if len(rest) != 2 {
			return false, alertf("Usage: add <product-id> <qty>")
		}
		item, err := parseDraftItem(rest[0], rest[1])
		if err != nil {
			return false, err
		}
		if err := w.AddDraftItem(item.Product, item.Quantity); err != nil {
			return false, failure(err, err.Error())
		}
		return false, r.showOrder(w, fmt.Sprintf("Added %s x%d to the draft.", w.ProductName(item.Product), item.Quantity))
	case "draft":
		return false, r.showOrder(w, "")
	case "send":
		if err := r.addDraftItems(w, rest); err != nil {
			return false, err
		}
		err := trackAction(r.logger, "order send", logArgs, func() error { return w.SendOrder(ctx) })
		if err != nil {
			return false, orderFailure(err, "Order sent successfully!", "creating order")
		}
		return false, r.showOrder(w, "Order sent successfully!")
	case "append", "update":
		if err := r.addDraftItems(w, rest); err != nil {
			return false, err
		}
		err := trackAction(r.logger, "order append", logArgs, func() error { return w.AppendDraftToOrder(ctx) })
		if errors.Is(err, tableorder.ErrNoExistingOrder) {
			return false, &userError{Message: "No existing order to update.", Err: err}
		}
		if err != nil {
			return false, orderFailure(err, "Order updated successfully!", "updating order")
		}
		return false, r.showOrder(w, "Order updated successfully!")
	case "edit":
		if len(rest) != 1 {
			return false, alertf("Usage: edit <item-id>")
		}
		itemID, err := parseID("item id", rest[0])
		if err != nil {
			return false, err
		}
		if err := w.BeginEdit(itemID); err != nil {
			return false, failure(err, err.Error())
		}
		return false, r.showOrder(w, fmt.Sprintf("Editing item %d. Use qty <n>, then save or cancel.", itemID))
	case "qty", "quantity":
		if len(rest) != 1 {
			return false, alertf("Usage: qty <n>")
		}
		qty, err := strconv.Atoi(rest[0])
		if err != nil {
			return false, failure(tableorder.ErrInvalidQuantity, "")
		}
		if err := w.SetEditQuantity(qty); err != nil {
			return false, failure(err, err.Error())
		}
		return false, nil
	case "save":
		err := trackAction(r.logger, "order item save", logArgs, func() error { return w.SaveEdit(ctx) })
		if errors.Is(err, tableorder.ErrProductNotSelected) {
			return false, &userError{Message: "This item's product is not on the menu, so it cannot be updated.", Err: err}
		}
		if err != nil {
			return false, orderFailure(err, "Item updated successfully!", "updating item")
		}
		return false, r.showOrder(w, "Item updated successfully!")
	case "cancel":
		w.CancelEdit()
		return false, r.showOrder(w, "Edit cancelled.")
	case "delete", "remove":
		if len(rest) != 1 {
			return false, alertf("Usage: delete <item-id>")
		}
		itemID, err := parseID("item id", rest[0])
		if err != nil {
			return false, err
		}
		err = trackAction(r.logger, "order item delete", logArgs, func() error { return w.DeleteItem(ctx, itemID) })
		switch {
		case errors.Is(err, tableorder.ErrRefetch):
			return false, orderFailure(err, "Item deleted successfully!", "deleting item")
		case err != nil:
			return false, failure(err, "Error deleting the item.")
		}
		return false, r.showOrder(w, "Item deleted successfully!")
	case "bill":
		billID, err := trackCall(r.logger, "bill create", logArgs, func() (int, error) { return w.CreateBill(ctx) })
		if errors.Is(err, tableorder.ErrNoExistingOrder) {
			return false, &userError{Message: "No order to create a bill for.", Err: err}
		}
		if err != nil {
			return false, orderFailure(err, "", "creating bill")
		}
		if err := r.writeResponse(response{Command: "bill create", Message: "Bill created successfully!"}); err != nil {
			return true, err
		}
		return true, r.billCommand(ctx, []string{strconv.Itoa(billID)})
	default:
		return false, alertf("Unknown table action %q. Type 'help' for table actions.", action)
	}
	return false, nil
}

func (r *Runner) showOrder(w *tableorder.Workflow, message string) error {
	return r.writeResponse(response{Command: "order", Message: message, Results: viewOf(w)})
}

// addDraftItems adds "product:qty" pairs given inline with send or append.
func (r *Runner) addDraftItems(w *tableorder.Workflow, pairs []string) error {
	for _, pair := range pairs {
		productID, qty, ok := strings.Cut(pair, ":")
		if !ok {
			return alertf("Invalid item %q, expected <product-id>:<qty>", pair)
		}
		item, err := parseDraftItem(productID, qty)
		if err != nil {
			return err
		}
		if err := w.AddDraftItem(item.Product, item.Quantity); err != nil {
			return failure(err, err.Error())
		}
	}
	return nil
}

func parseDraftItem(productID, qty string) (cafe.DraftItem, error) {
	id, err := parseID("product id", productID)
	if err != nil {
		return cafe.DraftItem{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil {
		return cafe.DraftItem{}, failure(tableorder.ErrInvalidQuantity, "")
	}
	return cafe.DraftItem{Product: id, Quantity: n}, nil
}

// orderFailure builds the alert for a failed order action. A change the
// backend accepted but could not be reloaded keeps its success message.
func orderFailure(err error, success, action string) error {
	if errors.Is(err, tableorder.ErrRefetch) {
		return &userError{Message: success + " Reloading the table order failed; run refresh.", Err: err}
	}
	var apiErr *cafe.APIError
	if errors.As(err, &apiErr) && apiErr.Detail == "" && friendlyError(err) == "" {
		return &userError{Message: "Error: Something went wrong", Err: err}
	}
	return failure(err, fmt.Sprintf("Error %s: %v", action, err))
}

// Package tableorder drives the order and billing flow of one table: building a
// draft, sending it, editing or deleting the lines of the open order and
// turning that order into a bill.
//
// A Workflow belongs to a single table view and is not safe for concurrent use.
package tableorder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cafe_admin/internal/cafe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrProductNotSelected = errors.New("select a product first")
	ErrInvalidQuantity    = errors.New("quantity must be a positive whole number")
	ErrEmptyDraft         = errors.New("no items added to the order")
	ErrNoExistingOrder    = errors.New("no existing order for this table")
	ErrMultipleOpenOrders = errors.New("table has more than one open order")
	ErrItemNotFound       = errors.New("order item not found")
	ErrNotEditing         = errors.New("no order item is being edited")

	// ErrRefetch marks a change the backend accepted whose follow-up reload failed.
	ErrRefetch = errors.New("refetch table order")
)

// API is the part of the backend the workflow talks to.
type API interface {
	ListProducts(ctx context.Context) ([]cafe.Product, error)
	TableOrders(ctx context.Context, tableID string) ([]cafe.Order, error)
	CreateOrder(ctx context.Context, req cafe.OrderRequest) error
	UpdateOrderItem(ctx context.Context, tableID, orderNumber string, itemID int, req cafe.OrderRequest) error
	DeleteOrderItem(ctx context.Context, orderNumber string, itemID int) error
	CreateBill(ctx context.Context, orderID int) (int, error)
}

type Options struct {
	OrderTakenBy int
}

type Edit struct {
	ItemID    int
	ProductID int
	Quantity  int
}

type Workflow struct {
	api     API
	tableID string
	opts    Options
	logger  *zap.Logger

	state    State
	products []cafe.Product
	draft    []cafe.DraftItem
	orders   []cafe.Order
	edit     *Edit
	billID   int
	lastErr  error
}

func New(api API, tableID string, opts Options, logger *zap.Logger) *Workflow {
	if opts.OrderTakenBy <= 0 {
		opts.OrderTakenBy = 1
	}
	return &Workflow{
		api:     api,
		tableID: strings.TrimSpace(tableID),
		opts:    opts,
		logger:  logger.Named("tableorder").With(zap.String("table", tableID)),
		state:   StateIdle,
	}
}

// Load fetches the product catalog and the table's open order concurrently.
func (w *Workflow) Load(ctx context.Context) error {
	var (
		products []cafe.Product
		orders   []cafe.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = w.api.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, err = w.tableOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return w.fail(err)
	}

	w.products = products
	if err := w.setOrders(orders); err != nil {
		return w.fail(err)
	}
	w.settle()
	w.logger.Debug("table loaded", zap.Int("products", len(products)), zap.Int("orders", len(orders)))
	return nil
}

// Refresh refetches the open order only.
func (w *Workflow) Refresh(ctx context.Context) error {
	orders, err := w.tableOrders(ctx)
	if err != nil {
		return err
	}
	return w.setOrders(orders)
}

// tableOrders fetches the open order. A 404 is the backend's answer for a
// table without one.
func (w *Workflow) tableOrders(ctx context.Context) ([]cafe.Order, error) {
	orders, err := w.api.TableOrders(ctx, w.tableID)
	if errors.Is(err, cafe.ErrNotFound) {
		w.logger.Debug("no open order", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load table order: %w", err)
	}
	return orders, nil
}

// AddDraftItem appends a line to the local draft. Nothing is sent.
func (w *Workflow) AddDraftItem(productID, quantity int) error {
	if _, ok := w.Product(productID); !ok {
		return ErrProductNotSelected
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	w.draft = append(w.draft, cafe.DraftItem{Product: productID, Quantity: quantity})
	w.state = StateBuildingDraft
	return nil
}

// SendOrder submits the draft as a new order. On success the draft is cleared
// and the open order refetched; on failure the draft is kept for a retry.
func (w *Workflow) SendOrder(ctx context.Context) error {
	if len(w.draft) == 0 {
		return ErrEmptyDraft
	}

	w.state = StateSending
	if err := w.api.CreateOrder(ctx, w.orderRequest(w.draft)); err != nil {
		w.state = StateSendFailed
		w.lastErr = err
		w.logger.Warn("send order failed", zap.Int("items", len(w.draft)), zap.Error(err))
		return err
	}

	w.logger.Info("order sent", zap.Int("items", len(w.draft)))
	w.draft = nil
	w.lastErr = nil
	return w.refreshAfter(ctx, StateSent)
}

// AppendDraftToOrder adds the draft lines to the open order. The request is
// addressed through the order's first line, which only identifies the order.
func (w *Workflow) AppendDraftToOrder(ctx context.Context) error {
	order, err := w.openOrder()
	if err != nil {
		return err
	}
	if len(w.draft) == 0 {
		return ErrEmptyDraft
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: order %s has no lines to address", ErrItemNotFound, order.OrderNumber)
	}

	w.state = StateSaving
	anchor := order.Items[0].ID
	if err := w.api.UpdateOrderItem(ctx, w.tableID, order.OrderNumber, anchor, w.orderRequest(w.draft)); err != nil {
		w.state = StateSaveFailed
		w.lastErr = err
		w.logger.Warn("append to order failed", zap.String("order", order.OrderNumber), zap.Error(err))
		return err
	}

	w.logger.Info("draft appended to order", zap.String("order", order.OrderNumber), zap.Int("items", len(w.draft)))
	w.draft = nil
	w.lastErr = nil
	return w.refreshAfter(ctx, StateSaved)
}

// BeginEdit enters edit-in-place for one line of the open order.
func (w *Workflow) BeginEdit(itemID int) error {
	order, err := w.openOrder()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(order.Items, func(it cafe.OrderItem) bool { return it.ID == itemID })
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	item := order.Items[idx]
	w.edit = &Edit{ItemID: item.ID, ProductID: w.productIDFor(item), Quantity: item.Quantity}
	w.state = StateEditingItem
	return nil
}

func (w *Workflow) SetEditQuantity(quantity int) error {
	if w.edit == nil {
		return ErrNotEditing
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	w.edit.Quantity = quantity
	return nil
}

// SaveEdit sends the edited line. The edit state is left in place on failure.
func (w *Workflow) SaveEdit(ctx context.Context) error {
	if w.edit == nil {
		return ErrNotEditing
	}
	order, err := w.openOrder()
	if err != nil {
		return err
	}

	edit := *w.edit
	if edit.ProductID == 0 {
		return fmt.Errorf("%w: item %d has no known product", ErrProductNotSelected, edit.ItemID)
	}
	w.state = StateSaving
	req := w.orderRequest([]cafe.DraftItem{{Product: edit.ProductID, Quantity: edit.Quantity}})
	if err := w.api.UpdateOrderItem(ctx, w.tableID, order.OrderNumber, edit.ItemID, req); err != nil {
		w.state = StateSaveFailed
		w.lastErr = err
		w.logger.Warn("save order item failed", zap.Int("item", edit.ItemID), zap.Error(err))
		return err
	}

	w.logger.Info("order item updated", zap.Int("item", edit.ItemID), zap.Int("quantity", edit.Quantity))
	w.edit = nil
	w.lastErr = nil
	return w.refreshAfter(ctx, StateSaved)
}

// CancelEdit discards the local edit without a request.
func (w *Workflow) CancelEdit() {
	w.edit = nil
	w.settle()
}

// DeleteItem removes a line of the open order. The line disappears from local
// state as soon as the backend confirms, before and regardless of the refetch.
func (w *Workflow) DeleteItem(ctx context.Context, itemID int) error {
	order, err := w.openOrder()
	if err != nil {
		return err
	}

	if err := w.api.DeleteOrderItem(ctx, order.OrderNumber, itemID); err != nil {
		w.lastErr = err
		w.logger.Warn("delete order item failed", zap.Int("item", itemID), zap.Error(err))
		return err
	}

	w.removeItem(order.ID, itemID)
	if w.edit != nil && w.edit.ItemID == itemID {
		w.edit = nil
	}
	w.logger.Info("order item deleted", zap.Int("item", itemID))

	if err := w.Refresh(ctx); err != nil {
		w.logger.Warn("refetch after delete failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRefetch, err)
	}
	w.settle()
	return nil
}

// CreateBill finalizes the open order and returns the bill id. The table is
// not marked unavailable locally; the backend owns that transition.
func (w *Workflow) CreateBill(ctx context.Context) (int, error) {
	order, err := w.openOrder()
	if err != nil {
		return 0, err
	}

	w.state = StateCreatingBill
	billID, err := w.api.CreateBill(ctx, order.ID)
	if err != nil {
		w.state = StateBillFailed
		w.lastErr = err
		w.logger.Warn("create bill failed", zap.Int("order", order.ID), zap.Error(err))
		return 0, err
	}

	w.logger.Info("bill created", zap.Int("order", order.ID), zap.Int("bill", billID))
	w.billID = billID
	w.state = StateBillCreated
	w.lastErr = nil
	return billID, nil
}

func (w *Workflow) TableID() string { return w.tableID }

func (w *Workflow) State() State { return w.state }

func (w *Workflow) LastError() error { return w.lastErr }

func (w *Workflow) BillID() int { return w.billID }

func (w *Workflow) Products() []cafe.Product { return slices.Clone(w.products) }

func (w *Workflow) Draft() []cafe.DraftItem { return slices.Clone(w.draft) }

// Orders returns the open order as a zero- or one-element list.
func (w *Workflow) Orders() []cafe.Order { return slices.Clone(w.orders) }

func (w *Workflow) Editing() (Edit, bool) {
	if w.edit == nil {
		return Edit{}, false
	}
	return *w.edit, true
}

func (w *Workflow) Product(id int) (cafe.Product, bool) {
	idx := slices.IndexFunc(w.products, func(p cafe.Product) bool { return p.ID == id })
	if idx < 0 {
		return cafe.Product{}, false
	}
	return w.products[idx], true
}

// ProductName names a draft line; unknown ids render as "Unknown Product".
func (w *Workflow) ProductName(id int) string {
	if p, ok := w.Product(id); ok {
		return p.Name
	}
	return "Unknown Product"
}

func (w *Workflow) orderRequest(items []cafe.DraftItem) cafe.OrderRequest {
	return cafe.OrderRequest{
		OrderItem:    slices.Clone(items),
		TableNumber:  w.tableID,
		OrderTakenBy: w.opts.OrderTakenBy,
	}
}

func (w *Workflow) openOrder() (cafe.Order, error) {
	switch len(w.orders) {
	case 0:
		return cafe.Order{}, ErrNoExistingOrder
	case 1:
		return w.orders[0], nil
	default:
		return cafe.Order{}, ErrMultipleOpenOrders
	}
}

func (w *Workflow) setOrders(orders []cafe.Order) error {
	if len(orders) > 1 {
		w.orders = nil
		return fmt.Errorf("%w: %d", ErrMultipleOpenOrders, len(orders))
	}
	w.orders = orders
	return nil
}

func (w *Workflow) refreshAfter(ctx context.Context, done State) error {
	w.state = done
	if err := w.Refresh(ctx); err != nil {
		w.logger.Warn("refetch table order failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRefetch, err)
	}
	w.settle()
	return nil
}

// settle moves the machine to its resting state for the current data.
func (w *Workflow) settle() {
	switch {
	case w.edit != nil:
		w.state = StateEditingItem
	case len(w.orders) > 0:
		w.state = StateViewingExisting
	case len(w.draft) > 0:
		w.state = StateBuildingDraft
	default:
		w.state = StateIdle
	}
}

func (w *Workflow) fail(err error) error {
	w.lastErr = err
	w.logger.Warn("table load failed", zap.Error(err))
	return err
}

func (w *Workflow) removeItem(orderID, itemID int) {
	for i := range w.orders {
		if w.orders[i].ID != orderID {
			continue
		}
		w.orders[i].Items = slices.DeleteFunc(slices.Clone(w.orders[i].Items), func(it cafe.OrderItem) bool {
			return it.ID == itemID
		})
	}
}

// productIDFor resolves the product of a persisted line, which the backend
// reports by name and, when available, by id.
func (w *Workflow) productIDFor(item cafe.OrderItem) int {
	if item.ProductID != 0 {
		return item.ProductID
	}
	for _, p := range w.products {
		if strings.EqualFold(p.Name, item.Product) {
			return p.ID
		}
	}
	return 0
}

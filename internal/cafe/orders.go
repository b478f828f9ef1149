package cafe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// TableOrders returns the open orders of a table. The backend answers with a
// single object under "data"; an absent or null value means no open order and
// an array is passed through so callers can detect more than one.
func (c *Client) TableOrders(ctx context.Context, tableID string) ([]Order, error) {
	var resp dataEnvelope[json.RawMessage]
	path := fmt.Sprintf("/table-order/list/%s/", url.PathEscape(tableID))
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(resp.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, nil
	case data[0] == '[':
		var orders []Order
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("%w: table orders: %v", ErrInvalidResponse, err)
		}
		return orders, nil
	default:
		var order Order
		if err := json.Unmarshal(data, &order); err != nil {
			return nil, fmt.Errorf("%w: table order: %v", ErrInvalidResponse, err)
		}
		return []Order{order}, nil
	}
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) error {
	return c.do(ctx, http.MethodPost, "/order/create/", req, nil)
}

func (c *Client) UpdateOrderItem(ctx context.Context, tableID, orderNumber string, itemID int, req OrderRequest) error {
	path := fmt.Sprintf("/order-item-update/%s/%s/%d/", url.PathEscape(tableID), url.PathEscape(orderNumber), itemID)
	return c.do(ctx, http.MethodPut, path, req, nil)
}

func (c *Client) DeleteOrderItem(ctx context.Context, orderNumber string, itemID int) error {
	path := fmt.Sprintf("/ordered-item-delete/%s/%d/", url.PathEscape(orderNumber), itemID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateBill finalizes an order and returns the new bill id.
func (c *Client) CreateBill(ctx context.Context, orderID int) (int, error) {
	var resp dataEnvelope[struct {
		ID int `json:"id"`
	}]
	if err := c.do(ctx, http.MethodPost, "/bill/create/", BillRequest{Order: orderID}, &resp); err != nil {
		return 0, err
	}
	if resp.Data.ID == 0 {
		return 0, fmt.Errorf("%w: bill create response has no id", ErrInvalidResponse)
	}
	return resp.Data.ID, nil
}

func (c *Client) BillDetails(ctx context.Context, billID int) (Bill, error) {
	var bill Bill
	if err := c.doGet(ctx, fmt.Sprintf("/indivisual-print/details/%d/", billID), &bill); err != nil {
		return Bill{}, err
	}
	return bill, nil
}

package cafe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return listAll[Category](ctx, c, "/catogery/list/")
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) error {
	return c.do(ctx, http.MethodPost, "/catogery/create/", in, nil)
}

func (c *Client) UpdateCategory(ctx context.Context, id int, in CategoryInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/catogery/update/%d/", id), in, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/catogery/delete/%d/", id), nil, nil)
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	return listAll[Product](ctx, c, "/product/alist/")
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) error {
	return c.do(ctx, http.MethodPost, "/product/create/", in, nil)
}

func (c *Client) UpdateProduct(ctx context.Context, id int, in ProductInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/product/update/%d/", id), in, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/product/delete/%d/", id), nil, nil)
}

func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	return listAll[Table](ctx, c, "/table/list/")
}

func (c *Client) CreateTable(ctx context.Context, in TableInput) error {
	return c.do(ctx, http.MethodPost, "/table/create/", in, nil)
}

// UpdateTable replaces a table. The backend routes table updates at the root
// path keyed by the table identifier.
func (c *Client) UpdateTable(ctx context.Context, tableID string, in TableInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/%s/", url.PathEscape(tableID)), in, nil)
}

func (c *Client) DeleteTable(ctx context.Context, tableID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/table/delete/%s/", url.PathEscape(tableID)), nil, nil)
}

func (c *Client) ListStocks(ctx context.Context) ([]Stock, error) {
	return listAll[Stock](ctx, c, "/stock/list/")
}

func (c *Client) CreateStock(ctx context.Context, in StockInput) error {
	in.AddedQuantity = nil
	return c.do(ctx, http.MethodPost, "/stock/create/", in, nil)
}

func (c *Client) UpdateStock(ctx context.Context, id int, in StockInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/stock/update/%d/", id), in, nil)
}

func (c *Client) DeleteStock(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/stock/delete/%d/", id), nil, nil)
}

func (c *Client) QuantityCheck(ctx context.Context) (QuantityCheck, error) {
	var report QuantityCheck
	if err := c.doGet(ctx, "/quantity/check/", &report); err != nil {
		return QuantityCheck{}, err
	}
	return report, nil
}

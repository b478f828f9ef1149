package cafe

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginResponse keeps the body exactly as the backend sent it in Raw; the
// other fields are the parts the client acts on.
type LoginResponse struct {
	Raw         json.RawMessage `json:"-"`
	UserIsAdmin bool            `json:"user_is_admin"`
	Token       Token           `json:"token"`
}

type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

type CategoryInput struct {
	Name string `json:"name"`
}

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	ProductCode string          `json:"product_code"`
	UserPrice   decimal.Decimal `json:"user_price"`
	Category    Category        `json:"catogery"`
}

type ProductInput struct {
	Name        string          `json:"name"`
	UserPrice   decimal.Decimal `json:"user_price"`
	ProductCode string          `json:"product_code"`
	Category    int             `json:"catogery"`
}

// TableNumber is the table's key. The backend sends it as a string or as a
// number depending on how the table was created.
type TableNumber string

func (n *TableNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = TableNumber(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("table_number: %w", err)
	}
	*n = TableNumber(num.String())
	return nil
}

type Table struct {
	TableNumber TableNumber `json:"table_number"`
	TableName   string      `json:"table_name"`
	Available   bool        `json:"available"`
}

type TableInput struct {
	TableNumber string `json:"table_number"`
	TableName   string `json:"table_name"`
}

type Stock struct {
	ID                int             `json:"id"`
	Product           Product         `json:"product"`
	HomePrice         decimal.Decimal `json:"home_price"`
	InitialQuantity   int             `json:"initial_quantity"`
	RemainingQuantity int             `json:"remaining_quantity"`
}

// StockInput is the create/update body. AddedQuantity is an increment and is
// only sent on update.
type StockInput struct {
	Product         int             `json:"product"`
	HomePrice       decimal.Decimal `json:"home_price"`
	InitialQuantity int             `json:"initial_quantity"`
	AddedQuantity   *int            `json:"added_quantity,omitempty"`
}

type QuantityCheckEntry struct {
	Product           string `json:"product"`
	ProductCode       string `json:"product_code,omitempty"`
	RemainingQuantity int    `json:"remaining_quantity"`
	InitialQuantity   int    `json:"initial_quantity,omitempty"`
}

type QuantityCheck struct {
	Message string               `json:"message,omitempty"`
	Entries []QuantityCheckEntry `json:"entries"`
}

// UnmarshalJSON accepts the report wrapped in "data" or "results", or as a bare array.
func (q *QuantityCheck) UnmarshalJSON(data []byte) error {
	var entries []QuantityCheckEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		*q = QuantityCheck{Entries: entries}
		return nil
	}

	var wrapped struct {
		Message string               `json:"message"`
		Data    []QuantityCheckEntry `json:"data"`
		Results []QuantityCheckEntry `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	q.Message = wrapped.Message
	q.Entries = wrapped.Data
	if len(q.Entries) == 0 {
		q.Entries = wrapped.Results
	}
	return nil
}

// DraftItem is an order line built locally and not yet sent.
type DraftItem struct {
	Product  int `json:"product"`
	Quantity int `json:"quantity"`
}

// OrderItem is a persisted order line as the backend returns it; Product is
// the product name there.
type OrderItem struct {
	ID                int             `json:"id"`
	Product           string          `json:"product"`
	ProductID         int             `json:"product_id,omitempty"`
	Price             decimal.Decimal `json:"price"`
	OrderProductPrice decimal.Decimal `json:"order_product_price"`
	Quantity          int             `json:"quantity"`
}

type Order struct {
	ID          int             `json:"id"`
	OrderNumber string          `json:"order_number"`
	TableNumber json.RawMessage `json:"table_number,omitempty"`
	Items       []OrderItem     `json:"order_item"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type OrderRequest struct {
	OrderItem    []DraftItem `json:"order_item"`
	TableNumber  string      `json:"table_number"`
	OrderTakenBy int         `json:"order_taken_by"`
}

type BillRequest struct {
	Order int `json:"order"`
}

type Cafe struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Photo   string `json:"photo,omitempty"`
}

type BillTable struct {
	TableName string `json:"table_name"`
}

type BillOrder struct {
	ID          int         `json:"id"`
	OrderNumber string      `json:"order_number,omitempty"`
	Table       BillTable   `json:"table_number"`
	Items       []OrderItem `json:"order_list"`
}

type Bill struct {
	ID             int             `json:"id"`
	BillNumber     string          `json:"bill_number"`
	BillCreated    string          `json:"bill_created"`
	Cafe           Cafe            `json:"cafe"`
	Order          BillOrder       `json:"order"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

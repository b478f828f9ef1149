package cafe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cafe_admin/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct {
	token       string
	invalidated bool
}

func (s *staticTokens) AccessToken() string { return s.token }
func (s *staticTokens) Invalidate()         { s.invalidated = true }

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Config{APIBaseURL: srv.URL, Timeout: 5 * time.Second}
	return NewClient(cfg, tokens, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestLoginKeepsRawBody(t *testing.T) {
	const body = `{"user_is_admin":true,"token":{"access":"abc","refresh":"def"},"email":"a@cafe.np"}`
	var got LoginRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/login/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, body)
	}, nil)

	resp, err := client.Login(context.Background(), " a@cafe.np ", "secret")
	require.NoError(t, err)

	assert.Equal(t, LoginRequest{Email: "a@cafe.np", Password: "secret"}, got)
	assert.True(t, resp.UserIsAdmin)
	assert.Equal(t, "abc", resp.Token.Access)
	assert.JSONEq(t, body, string(resp.Raw))
}

func TestLoginWithoutTokenIsInvalid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"user_is_admin":true}`)
	}, nil)

	_, err := client.Login(context.Background(), "a@cafe.np", "secret")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestLoginFailureCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"Invalid email or password"}`)
	}, nil)

	_, err := client.Login(context.Background(), "a@cafe.np", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", DetailOf(err))
}

func TestRequestsCarryBearerAndRequestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))
		writeJSON(w, http.StatusOK, `{"count":0,"next":null,"results":[]}`)
	}, &staticTokens{token: "tok-1"})

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestListFollowsNextLinks(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, http.StatusOK, `{"count":3,"next":"`+srvURL+`/product/alist/?page=2","results":[
				{"id":1,"name":"Tea","product_code":"T1","user_price":"40.00","catogery":{"id":1,"name":"Drinks"}},
				{"id":2,"name":"Coffee","product_code":"C1","user_price":120,"catogery":{"id":1,"name":"Drinks"}}]}`)
		case "2":
			writeJSON(w, http.StatusOK, `{"count":3,"next":null,"results":[
				{"id":3,"name":"Momo","product_code":"M1","user_price":"150.50","catogery":{"id":2,"name":"Food"}}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	client := NewClient(config.Config{APIBaseURL: srv.URL, Timeout: 5 * time.Second}, nil, zap.NewNop())
	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 3)
	assert.Equal(t, "Momo", products[2].Name)
	assert.True(t, products[1].UserPrice.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, "150.5", products[2].UserPrice.String())
	assert.Equal(t, "Drinks", products[0].Category.Name)
}

func TestListAcceptsBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"table_number":"1","table_name":"Window","available":true}]`)
	}, nil)

	tables, err := client.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Table{{TableNumber: "1", TableName: "Window", Available: true}}, tables)
}

func TestListTablesAcceptsNumericTableNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"count":2,"next":null,"results":[
			{"table_number":4,"table_name":"Patio","available":false},
			{"table_number":"T2","table_name":"Bar","available":true}
		]}`)
	}, nil)

	tables, err := client.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Table{
		{TableNumber: "4", TableName: "Patio"},
		{TableNumber: "T2", TableName: "Bar", Available: true},
	}, tables)
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		wantDetail string
	}{
		{"detail", http.StatusBadRequest, `{"detail":"Order already billed"}`, nil, "Order already billed"},
		{"field errors", http.StatusBadRequest, `{"name":["This field is required."],"photo":["Bad image."]}`, nil, "name: This field is required.; photo: Bad image."},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Given token not valid"}`, ErrUnauthorized, "Given token not valid"},
		{"forbidden", http.StatusForbidden, `{}`, ErrUnauthorized, ""},
		{"not found", http.StatusNotFound, `{"detail":"Not found."}`, ErrNotFound, "Not found."},
		{"plain text", http.StatusInternalServerError, `Server Error`, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, nil)

			err := client.DeleteCategory(context.Background(), 9)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestUnauthorizedInvalidatesTokenSource(t *testing.T) {
	tokens := &staticTokens{token: "stale"}
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)
	}, tokens)

	err := client.DeleteStock(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, tokens.invalidated)
}

func TestFailedLoginKeepsSession(t *testing.T) {
	tokens := &staticTokens{token: "still-valid"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`)
	}, tokens)

	_, err := client.Login(context.Background(), "a@cafe.np", "typo")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "No active account found with the given credentials", DetailOf(err))
	assert.False(t, tokens.invalidated)
}

func TestMalformedBodyIsInvalidResponse(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"id":`)
	}, nil)

	_, err := client.BillDetails(context.Background(), 42)
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"detail":"busy"}`)
	}, nil)

	err := client.CreateOrder(context.Background(), OrderRequest{TableNumber: "3", OrderTakenBy: 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetIsRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail":"busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"results":[{"id":1,"name":"Drinks"}]}`)
	}, nil)

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: 1, Name: "Drinks"}}, categories)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTableOrdersShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		count int
	}{
		{"absent", `{}`, 0},
		{"null", `{"data":null}`, 0},
		{"object", `{"data":{"id":7,"order_number":"ORD-7","order_item":[{"id":1,"product":"Tea","price":"40.00","order_product_price":"80.00","quantity":2}],"total_price":"80.00"}}`, 1},
		{"array", `{"data":[{"id":7,"order_number":"ORD-7"},{"id":8,"order_number":"ORD-8"}]}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/table-order/list/3/", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			}, nil)

			orders, err := client.TableOrders(context.Background(), "3")
			require.NoError(t, err)
			assert.Len(t, orders, tt.count)
		})
	}
}

func TestOrderItemEndpoints(t *testing.T) {
	type call struct {
		method string
		path   string
		body   string
	}
	var calls []call

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		writeJSON(w, http.StatusOK, `{}`)
	}, nil)

	ctx := context.Background()
	req := OrderRequest{OrderItem: []DraftItem{{Product: 4, Quantity: 1}}, TableNumber: "3", OrderTakenBy: 1}
	require.NoError(t, client.UpdateOrderItem(ctx, "3", "ORD-7", 11, req))
	require.NoError(t, client.DeleteOrderItem(ctx, "ORD-7", 11))

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/order-item-update/3/ORD-7/11/", calls[0].path)
	assert.JSONEq(t, `{"order_item":[{"product":4,"quantity":1}],"table_number":"3","order_taken_by":1}`, calls[0].body)
	assert.Equal(t, http.MethodDelete, calls[1].method)
	assert.Equal(t, "/ordered-item-delete/ORD-7/11/", calls[1].path)
}

func TestCreateBillReturnsID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"order":7}`, string(body))
		writeJSON(w, http.StatusCreated, `{"data":{"id":42,"bill_number":"B-42"}}`)
	}, nil)

	id, err := client.CreateBill(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestStockBodies(t *testing.T) {
	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		writeJSON(w, http.StatusOK, `{}`)
	}, nil)

	added := 5
	in := StockInput{Product: 2, HomePrice: decimal.RequireFromString("90.5"), InitialQuantity: 10, AddedQuantity: &added}
	require.NoError(t, client.CreateStock(context.Background(), in))
	require.NoError(t, client.UpdateStock(context.Background(), 3, in))

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"product":2,"home_price":"90.5","initial_quantity":10}`, bodies[0])
	assert.JSONEq(t, `{"product":2,"home_price":"90.5","initial_quantity":10,"added_quantity":5}`, bodies[1])
}

func TestQuantityCheckShapes(t *testing.T) {
	for _, body := range []string{
		`[{"product":"Tea","remaining_quantity":2}]`,
		`{"message":"low stock","data":[{"product":"Tea","remaining_quantity":2}]}`,
		`{"results":[{"product":"Tea","remaining_quantity":2}]}`,
	} {
		var report QuantityCheck
		require.NoError(t, json.Unmarshal([]byte(body), &report), body)
		require.Len(t, report.Entries, 1, body)
		assert.Equal(t, "Tea", report.Entries[0].Product)
		assert.Equal(t, 2, report.Entries[0].RemainingQuantity)
	}
}

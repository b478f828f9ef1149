package bill

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bill42 = `{
	"id":42,
	"bill_number":"B-0042",
	"bill_created":"2026-10-19T12:30:00Z",
	"cafe":{"name":"Himalayan Brew","address":"Thamel, Kathmandu","email":"hello@brew.np","phone":"01-4400000"},
	"order":{"id":9,"table_number":{"table_name":"Window 5"},"order_list":[
		{"id":1,"product":"Momo","price":"150.00","quantity":2},
		{"id":2,"product":"Tea","price":"25.00","quantity":2}
	]},
	"grand_total":"350.00",
	"discount_amount":"0.00"
}`

type anonymous struct{}

func (anonymous) AccessToken() string { return "tok" }

func newBackend(t *testing.T, status int, body string) *cafe.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indivisual-print/details/42/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return cafe.NewClient(config.Config{APIBaseURL: srv.URL, Timeout: 5 * time.Second}, anonymous{}, zap.NewNop())
}

func lineWithPrefix(t *testing.T, out, prefix string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.Fields(line)
		}
	}
	t.Fatalf("no line starting with %q in:\n%s", prefix, out)
	return nil
}

func TestRenderLoadedBill(t *testing.T) {
	v := NewViewer(newBackend(t, http.StatusOK, bill42), Branding{Currency: "Rs"}, zap.NewNop())

	require.NoError(t, v.Load(context.Background(), 42))
	assert.Equal(t, StateLoaded, v.State())

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Bill Details\n"))
	assert.Contains(t, out, "Himalayan Brew\n")
	assert.Contains(t, out, "Bill Number: B-0042\n")
	assert.Contains(t, out, "Date: 2026-10-19 12:30\n")
	assert.Contains(t, out, "Table Number: Window 5\n")
	assert.Contains(t, out, "Grand Total: Rs350.00\n")
	assert.NotContains(t, out, "Discount")

	assert.Equal(t, []string{"Product", "Price", "Quantity", "Total"}, lineWithPrefix(t, out, "Product"))
	assert.Equal(t, []string{"Momo", "Rs150.00", "2", "Rs300.00"}, lineWithPrefix(t, out, "Momo"))
	assert.Equal(t, []string{"Tea", "Rs25.00", "2", "Rs50.00"}, lineWithPrefix(t, out, "Tea"))
}

func TestPrintOmitsTitle(t *testing.T) {
	v := NewViewer(newBackend(t, http.StatusOK, bill42), Branding{}, zap.NewNop())
	require.NoError(t, v.Load(context.Background(), 42))

	var rendered, printed bytes.Buffer
	require.NoError(t, v.Render(&rendered))
	require.NoError(t, v.Print(&printed))

	assert.NotContains(t, printed.String(), Title)
	assert.Equal(t, "Bill Details\n\n"+printed.String(), rendered.String())
	assert.Contains(t, printed.String(), "Grand Total: Rs350.00")
}

func TestBrandingOverridesFetchedCafe(t *testing.T) {
	branding := Branding{Currency: "NPR ", Phone: "9800000000"}
	v := NewViewer(newBackend(t, http.StatusOK, bill42), branding, zap.NewNop())
	require.NoError(t, v.Load(context.Background(), 42))

	var buf bytes.Buffer
	require.NoError(t, v.Print(&buf))
	out := buf.String()

	assert.Contains(t, out, "Phone: 9800000000\n")
	assert.NotContains(t, out, "01-4400000")
	assert.Contains(t, out, "Thamel, Kathmandu\n")
	assert.Contains(t, out, "Email: hello@brew.np\n")
	assert.Contains(t, out, "Grand Total: NPR 350.00\n")
}

func TestLoadFailureStates(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"backend detail", http.StatusNotFound, `{"detail":"Bill not found"}`, "Error: Bill not found"},
		{"no detail", http.StatusInternalServerError, `oops`, "Error: Failed to fetch bill details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewer(newBackend(t, tt.status, tt.body), Branding{}, zap.NewNop())

			err := v.Load(context.Background(), 42)
			require.Error(t, err)
			assert.Equal(t, StateError, v.State())
			assert.Equal(t, tt.message, v.Message())

			var buf bytes.Buffer
			require.NoError(t, v.Render(&buf))
			assert.Equal(t, "Bill Details\n\n"+tt.message+"\n", buf.String())
			require.ErrorIs(t, v.Print(&buf), ErrNotLoaded)
		})
	}
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingSource) BillDetails(ctx context.Context, _ int) (cafe.Bill, error) {
	close(b.started)
	select {
	case <-b.release:
		return cafe.Bill{}, errors.New("unreachable backend")
	case <-ctx.Done():
		return cafe.Bill{}, ctx.Err()
	}
}

func TestRenderWhileLoading(t *testing.T) {
	src := blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	v := NewViewer(src, Branding{}, zap.NewNop())
	assert.Equal(t, StateIdle, v.State())

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background(), 7) }()
	<-src.started

	assert.Equal(t, StateLoading, v.State())
	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Equal(t, "Bill Details\n\nLoading...\n", buf.String())

	close(src.release)
	require.Error(t, <-done)
	assert.Equal(t, "Error: unreachable backend", v.Message())
}

func TestSubtotal(t *testing.T) {
	item := cafe.OrderItem{Price: decimal.RequireFromString("12.35"), Quantity: 3}
	assert.Equal(t, "37.05", Subtotal(item).StringFixed(2))
	assert.True(t, Subtotal(cafe.OrderItem{Price: decimal.NewFromInt(5)}).IsZero())
}

func TestBrandingFromConfig(t *testing.T) {
	b := BrandingFromConfig(config.Config{Currency: "Rs", CafeEmail: "a@b.np"})
	assert.Equal(t, Branding{Currency: "Rs", Email: "a@b.np"}, b)

	v := NewViewer(nil, Branding{}, zap.NewNop())
	assert.Equal(t, config.DefaultCurrency, v.branding.Currency)
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "timestamp", raw: "2026-10-19T12:30:00Z", want: "2026-10-19 12:30"},
		{name: "naive timestamp", raw: "2026-10-19T08:05:09.123456", want: "2026-10-19 08:05"},
		{name: "date only", raw: "2026-10-19", want: "2026-10-19"},
		{name: "unparsed", raw: "yesterday", want: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDate(tt.raw))
		})
	}
}

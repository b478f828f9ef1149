package bill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	Title          = "Bill Details"
	fallbackDetail = "Failed to fetch bill details"
)

var ErrNotLoaded = errors.New("bill not loaded")

type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Source fetches a bill by id.
type Source interface {
	BillDetails(ctx context.Context, billID int) (cafe.Bill, error)
}

// Branding overrides the header the backend returns for the café. Empty
// fields fall back to the fetched record.
type Branding struct {
	Currency string
	Address  string
	Phone    string
	Email    string
}

func BrandingFromConfig(cfg config.Config) Branding {
	return Branding{
		Currency: cfg.Currency,
		Address:  cfg.CafeAddress,
		Phone:    cfg.CafePhone,
		Email:    cfg.CafeEmail,
	}
}

type Viewer struct {
	mu       sync.RWMutex
	src      Source
	branding Branding
	logger   *zap.Logger

	state   State
	billID  int
	bill    cafe.Bill
	message string
}

func NewViewer(src Source, branding Branding, logger *zap.Logger) *Viewer {
	if branding.Currency == "" {
		branding.Currency = config.DefaultCurrency
	}
	return &Viewer{
		src:      src,
		branding: branding,
		logger:   logger.Named("bill"),
	}
}

// Load fetches the bill. On failure the viewer moves to the error state with
// a message built from the backend detail.
func (v *Viewer) Load(ctx context.Context, billID int) error {
	v.mu.Lock()
	v.state = StateLoading
	v.billID = billID
	v.message = ""
	v.mu.Unlock()

	b, err := v.src.BillDetails(ctx, billID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state = StateError
		v.message = ErrorMessage(err)
		v.logger.Warn("load bill", zap.Int("bill_id", billID), zap.Error(err))
		return err
	}
	v.state = StateLoaded
	v.bill = b
	v.logger.Debug("bill loaded", zap.Int("bill_id", billID), zap.String("bill_number", b.BillNumber))
	return nil
}

func (v *Viewer) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Message is the error text shown in the error state.
func (v *Viewer) Message() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.message
}

func (v *Viewer) Bill() (cafe.Bill, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bill, v.state == StateLoaded
}

// Render writes the full screen: title, then the current state.
func (v *Viewer) Render(w io.Writer) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if _, err := fmt.Fprintf(w, "%s\n\n", Title); err != nil {
		return err
	}
	switch v.state {
	case StateLoaded:
		return v.writeContent(w)
	case StateError:
		_, err := fmt.Fprintln(w, v.message)
		return err
	default:
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	}
}

// Print writes only the printable region of a loaded bill.
func (v *Viewer) Print(w io.Writer) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateLoaded {
		return ErrNotLoaded
	}
	return v.writeContent(w)
}

func (v *Viewer) writeContent(w io.Writer) error {
	b := v.bill
	var sb strings.Builder

	if name := strings.TrimSpace(b.Cafe.Name); name != "" {
		sb.WriteString(name + "\n")
	}
	writeField(&sb, "", firstNonEmpty(v.branding.Address, b.Cafe.Address))
	writeField(&sb, "Phone: ", firstNonEmpty(v.branding.Phone, b.Cafe.Phone))
	writeField(&sb, "Email: ", firstNonEmpty(v.branding.Email, b.Cafe.Email))
	sb.WriteString("\n")

	writeField(&sb, "Bill Number: ", b.BillNumber)
	writeField(&sb, "Date: ", formatDate(b.BillCreated))
	writeField(&sb, "Table Number: ", b.Order.Table.TableName)
	sb.WriteString("\nOrder Summary\n")

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Product\tPrice\tQuantity\tTotal")
	for _, item := range b.Order.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			item.Product,
			v.money(item.Price),
			item.Quantity,
			v.money(Subtotal(item)),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sb.WriteString("\n")
	if b.DiscountAmount.IsPositive() {
		fmt.Fprintf(&sb, "Discount: %s\n", v.money(b.DiscountAmount))
	}
	fmt.Fprintf(&sb, "Grand Total: %s\n", v.money(b.GrandTotal))

	_, err := io.WriteString(w, sb.String())
	return err
}

func (v *Viewer) money(d decimal.Decimal) string {
	return v.branding.Currency + d.StringFixed(2)
}

// Subtotal is the line total computed on the client as price times quantity.
func Subtotal(item cafe.OrderItem) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ErrorMessage is the alert text for a failed bill fetch: the backend detail
// for rejected requests, the transport error otherwise.
func ErrorMessage(err error) string {
	var apiErr *cafe.APIError
	if !errors.As(err, &apiErr) {
		return "Error: " + err.Error()
	}
	if apiErr.Detail == "" {
		return "Error: " + fallbackDetail
	}
	return "Error: " + apiErr.Detail
}

func writeField(sb *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	sb.WriteString(label + value + "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// formatDate shows the minute for timestamps and leaves date-only values as dates.
func formatDate(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.Format(time.DateOnly)
	}
	return raw
}

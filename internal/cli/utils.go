package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/session"
	"cafe_admin/internal/tableorder"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	errExit          = errors.New("exit")
	errLoginRequired = errors.New("admin login required")
)

// userError carries the alert shown to the user alongside the cause.
type userError struct {
	Message string
	Err     error
}

func (e *userError) Error() string {
	return e.Message
}

func (e *userError) Unwrap() error {
	return e.Err
}

func alertf(format string, args ...any) error {
	return &userError{Message: fmt.Sprintf(format, args...)}
}

// failure turns a failed backend action into an alert: known conditions get a
// fixed text, rejected requests show the backend detail, anything else falls
// back to the action's generic message.
func failure(err error, fallback string) error {
	var ue *userError
	if errors.As(err, &ue) {
		return err
	}
	if msg := friendlyError(err); msg != "" {
		return &userError{Message: msg, Err: err}
	}
	if detail := cafe.DetailOf(err); detail != "" {
		return &userError{Message: "Error: " + detail, Err: err}
	}
	return &userError{Message: fallback, Err: err}
}

func alertText(err error) string {
	var ue *userError
	if errors.As(err, &ue) {
		return ue.Message
	}
	if msg := friendlyError(err); msg != "" {
		return msg
	}
	if detail := cafe.DetailOf(err); detail != "" {
		return "Error: " + detail
	}
	return "Error: " + err.Error()
}

func friendlyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, errLoginRequired):
		return "Admin login required. Use: login <email> <password>"
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Not logged in. Use: login <email> <password>"
	case errors.Is(err, session.ErrMissingCredentials):
		return "Email and password are required."
	case errors.Is(err, session.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, cafe.ErrUnauthorized):
		return "Not authorized: log in again with an admin account."
	case errors.Is(err, tableorder.ErrProductNotSelected):
		return "Select a product from the menu first."
	case errors.Is(err, tableorder.ErrInvalidQuantity):
		return "Quantity must be a positive whole number."
	case errors.Is(err, tableorder.ErrEmptyDraft):
		return "No items added to the order."
	case errors.Is(err, tableorder.ErrMultipleOpenOrders):
		return "This table has more than one open order. Resolve it in the backend first."
	case errors.Is(err, tableorder.ErrItemNotFound):
		return "No such item in the order."
	case errors.Is(err, tableorder.ErrNotEditing):
		return "No item is being edited. Use: edit <item-id>"
	default:
		return ""
	}
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("name", name),
		zap.Any("args", args),
		zap.Int64("ms", elapsed.Milliseconds()),
		zap.Bool("ok", err == nil),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Info("action", fields...)
	return result, err
}

// trackAction is trackCall for actions without a result.
func trackAction(logger *zap.Logger, name string, args map[string]any, fn func() error) error {
	_, err := trackCall(logger, name, args, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// splitArgs splits a shell line on whitespace, keeping single- or
// double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)

	for _, ch := range line {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
				continue
			}
			current.WriteRune(ch)
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(ch)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, alertf("Unterminated quote in: %s", line)
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	if len(out) > 2 && strings.EqualFold(out[0], "login") {
		out[2] = "***"
	}
	return out
}

func parseID(field, value string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, alertf("Invalid %s: %q", field, value)
	}
	return id, nil
}

func parseCount(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, alertf("Invalid %s: %q", field, value)
	}
	return n, nil
}

func parsePrice(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, alertf("Invalid %s: %q", field, value)
	}
	return d, nil
}

// allPresent reports whether every value is non-blank.
func allPresent(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

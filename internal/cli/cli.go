package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"
	"cafe_admin/internal/nav"
	"cafe_admin/internal/session"

	"go.uber.org/zap"
)

type Runner struct {
	options Options
	cfg     config.Config
	base    *zap.Logger
	logger  *zap.Logger

	store  *session.Store
	client *cafe.Client
	auth   *session.Auth
	guard  *nav.Guard

	in          io.Reader
	out         io.Writer
	scanner     *bufio.Scanner
	interactive bool
}

func NewRunner(cfg config.Config, logger *zap.Logger, store *session.Store, client *cafe.Client, auth *session.Auth) *Runner {
	opts := Options{
		APIBaseURL:   cfg.APIBaseURL,
		Timeout:      cfg.Timeout,
		OrderTakenBy: cfg.OrderTakenBy,
	}

	return &Runner{
		options: opts,
		cfg:     cfg,
		base:    logger,
		logger:  logger.Named("cli"),
		store:   store,
		client:  client,
		auth:    auth,
		guard:   nav.NewGuard(),
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

func (r *Runner) Execute() error {
	return r.run(os.Args[1:])
}

func (r *Runner) run(argv []string) error {
	var timeoutSeconds int

	fs := flag.NewFlagSet("cafe-admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [command [args...]]\n", fs.Name())
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nWithout a command an interactive shell starts. Type 'help' there for commands.")
	}

	fs.StringVar(&r.options.APIBaseURL, "api-base-url", r.options.APIBaseURL, "Cafe backend base URL (API_BASE_URL)")
	fs.IntVar(&timeoutSeconds, "timeout", int(r.options.Timeout.Seconds()), "Request timeout in seconds")
	fs.IntVar(&r.options.OrderTakenBy, "order-taken-by", r.options.OrderTakenBy, "Staff id sent with new orders (ORDER_TAKEN_BY)")
	fs.BoolVar(&r.options.JSON, "json", false, "Output JSON format")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if timeoutSeconds > 0 {
		r.options.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if r.options.OrderTakenBy <= 0 {
		return errors.New("--order-taken-by must be positive")
	}
	r.options.Args = fs.Args()
	r.applyOptions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if len(r.options.Args) == 0 {
		return r.runREPL(ctx)
	}
	return r.runOneShot(ctx, r.options.Args)
}

// applyOptions rebuilds the backend client when flags override the configured
// host or timeout.
func (r *Runner) applyOptions() {
	if r.options.APIBaseURL == r.cfg.APIBaseURL && r.options.Timeout == r.cfg.Timeout {
		return
	}
	cfg := r.cfg
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(r.options.APIBaseURL), "/")
	cfg.Timeout = r.options.Timeout
	r.client = cafe.NewClient(cfg, r.store, r.base)
	r.auth = session.NewAuth(r.client, r.store, r.base)
}

func (r *Runner) runOneShot(ctx context.Context, args []string) error {
	err := r.dispatch(ctx, args)
	if err == nil || errors.Is(err, errExit) {
		return nil
	}
	r.logger.Warn("command failed", zap.Strings("args", redactArgs(args)), zap.Error(err))
	return &userError{Message: alertText(err), Err: err}
}

func (r *Runner) runREPL(ctx context.Context) error {
	r.interactive = true
	fmt.Fprintln(r.out, "Cafe admin shell (type 'help' for commands, 'exit' to quit)")
	r.showStart()

	for {
		line, ok, err := r.prompt("> ")
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

		err = r.dispatch(ctx, args)
		switch {
		case errors.Is(err, errExit):
			return nil
		case err != nil:
			r.alert(err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// prompt reads one trimmed line. ok is false at end of input.
func (r *Runner) prompt(label string) (string, bool, error) {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.in)
	}
	fmt.Fprint(r.out, label)
	if !r.scanner.Scan() {
		fmt.Fprintln(r.out)
		return "", false, r.scanner.Err()
	}
	return strings.TrimSpace(r.scanner.Text()), true, nil
}

// showStart opens the screen a returning session lands on.
func (r *Runner) showStart() {
	sess, err := r.auth.Current()
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		fmt.Fprintln(r.out, "Your session has expired. Please log in again.")
	case err != nil:
		fmt.Fprintln(r.out, "Not logged in. Use: login <email> <password>")
	case sess.UserIsAdmin:
		fmt.Fprintf(r.out, "Logged in as admin (session until %s).\n", formatExpiry(sess.ExpiresAt))
		r.writeMenu()
	default:
		fmt.Fprintln(r.out, "Logged in without admin rights. Admin screens are unavailable.")
	}
}

func (r *Runner) alert(err error) {
	msg := alertText(err)
	r.logger.Warn("action failed", zap.String("alert", msg), zap.Error(err))
	fmt.Fprintln(r.out, msg)
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "logout"
	}
	return t.Local().Format("2006-01-02 15:04")
}

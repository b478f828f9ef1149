package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"cafe_admin/internal/bill"
	"cafe_admin/internal/nav"

	"go.uber.org/zap"
)

const billUsage = "Usage: bill <bill-id> [--print <file>]"

func (r *Runner) billCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bill", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	printFile := fs.String("print", "", "write the printable bill to a file, - for stdout")

	// Flags may come before or after the id.
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return alertf(billUsage)
	}
	idArg := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil || fs.NArg() > 0 {
		return alertf(billUsage)
	}

	billID, err := parseID("bill id", idArg)
	if err != nil {
		return err
	}
	if err := r.requireAdmin(nav.BillPath(billID)); err != nil {
		return err
	}

	viewer := bill.NewViewer(r.client, bill.BrandingFromConfig(r.cfg), r.base)
	loadErr := trackAction(r.logger, "bill load", map[string]any{"bill_id": billID}, func() error {
		return viewer.Load(ctx, billID)
	})
	if loadErr != nil {
		if !r.options.JSON {
			fmt.Fprintln(r.out, bill.Title)
		}
		return &userError{Message: viewer.Message(), Err: loadErr}
	}

	if r.options.JSON {
		b, _ := viewer.Bill()
		if err := r.writeJSONResponse(response{Command: "bill", Results: b}); err != nil {
			return err
		}
	} else if err := viewer.Render(r.out); err != nil {
		return err
	}

	if *printFile == "" {
		return nil
	}
	return r.printBill(viewer, *printFile)
}

func (r *Runner) printBill(viewer *bill.Viewer, path string) error {
	if path == "-" {
		return viewer.Print(r.out)
	}

	f, err := os.Create(path)
	if err != nil {
		return failure(err, fmt.Sprintf("Failed to open %s for printing.", path))
	}
	if err := viewer.Print(f); err != nil {
		_ = f.Close()
		return failure(err, "Failed to print the bill.")
	}
	if err := f.Close(); err != nil {
		return failure(err, "Failed to print the bill.")
	}

	r.logger.Info("bill printed", zap.String("path", path))
	if !r.options.JSON {
		fmt.Fprintf(r.out, "Bill written to %s\n", path)
	}
	return nil
}

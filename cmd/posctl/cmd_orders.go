package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ariefcatur/restobill/internal/app"
	"github.com/ariefcatur/restobill/internal/csvexport"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/receipt"
	"github.com/spf13/cobra"
)

var (
	exportOut    string
	receiptPrint bool
	salesDays    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all orders as CSV",
	Long: `Writes every stored order as CSV (Order ID, Date, Items, Total,
Payment Method, Cashier). Use --out - for stdout; the default file name is
sales_export_YYYY-MM-DD.csv.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, s *app.Stores) error {
			list, err := s.Storage.GetOrders(ctx)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			name := exportOut
			if name == "" {
				name = csvexport.Filename(time.Now().In(cfg.Location()))
			}
			if name != "-" {
				f, err := os.Create(name)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := csvexport.Write(w, list, cfg.Location()); err != nil {
				return err
			}
			if name != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d orders written to %s\n", len(list), name)
			}
			return nil
		})
	},
}

var receiptCmd = &cobra.Command{
	Use:   "receipt <order-id>",
	Short: "Render a stored order's receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, s *app.Stores) error {
			o, err := s.Storage.GetOrder(ctx, args[0])
			if err != nil {
				return fmt.Errorf("order %s: %w", args[0], err)
			}
			text := receipt.Render(o, businessFromConfig())
			if !receiptPrint {
				_, err := io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			if cfg.ReceiptSpoolDir == "" {
				return fmt.Errorf("--print needs RECEIPT_SPOOL_DIR")
			}
			return (&receipt.SpoolPrinter{Dir: cfg.ReceiptSpoolDir}).Print(ctx, o.ID, text)
		})
	},
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Show total sales and the daily breakdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, s *app.Stores) error {
			list, err := s.Storage.GetOrders(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), orders.Summarize(list, salesDays, cfg.Location()))
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema and demo menu",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// OpenStores migrates on connect
		return withStores(cmd, func(ctx context.Context, s *app.Stores) error {
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (- for stdout)")
	receiptCmd.Flags().BoolVar(&receiptPrint, "print", false, "Send to the spool printer instead of stdout")
	salesCmd.Flags().IntVar(&salesDays, "days", 7, "Number of most recent days to list")
}

func businessFromConfig() receipt.Business {
	return receipt.Business{
		Name:     cfg.Business.Name,
		Address:  cfg.Business.Address,
		Phone:    cfg.Business.Phone,
		Footer:   cfg.Business.Footer,
		Location: cfg.Location(),
	}
}

func printSummary(w io.Writer, s orders.SalesSummary) {
	fmt.Fprintf(w, "Total sales: %s\n", receipt.Money(s.TotalSales))
	fmt.Fprintf(w, "Orders:      %d\n", s.OrderCount)
	if len(s.Daily) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s %8s %12s\n", "Date", "Orders", "Sales")
	for _, d := range s.Daily {
		fmt.Fprintf(w, "%-12s %8d %12s\n", d.Date, d.Orders, receipt.Money(d.Sales))
	}
}

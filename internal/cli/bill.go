package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

func (a *app) billCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Issue and list credit bills",
	}
	cmd.AddCommand(a.billCreateCommand(), a.billListCommand())
	return cmd
}

func (a *app) billCreateCommand() *cobra.Command {
	var (
		customerRef string
		items       []string
		date, due   string
		notes       string
		txnID       string
	)
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a bill for a customer",
		Example: `  udhaar bill create --customer asha --item "Rice 5kg:2:450" --item "Oil:1:180.50" --due 2026-11-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(s *session, p printer) error {
				c, err := resolveCustomer(cmd, s, customerRef)
				if err != nil {
					return err
				}
				in := udhaar.BillInput{CustomerID: c.ID, Notes: notes}
				for _, raw := range items {
					item, err := parseItem(raw, a.cfg.Currency)
					if err != nil {
						return err
					}
					in.Items = append(in.Items, item)
				}
				if in.Date, err = parseDay(date); err != nil {
					return err
				}
				if due != "" {
					d, err := parseDay(due)
					if err != nil {
						return err
					}
					in.DueDate = &d
				}
				if in.TransactionID, err = parseTxnID(txnID); err != nil {
					return err
				}

				b, err := s.ledger.CreateBill(cmd.Context(), in)
				if err != nil {
					return err
				}
				return p.emit(b, func(w *tabwriter.Writer) {
					row(w, "BILL", "DATE", "TOTAL", "PAID", "STATUS")
					row(w, b.ID, day(b.Date), b.TotalAmount, b.PaidAmount, b.Status)
				})
			})
		},
	}
	cmd.Flags().StringVar(&customerRef, "customer", "", "Customer id or search term (required)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Line item as name:quantity:unit_price (repeatable)")
	cmd.Flags().StringVar(&date, "date", "", "Bill date YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&due, "due", "", "Due date YYYY-MM-DD")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&txnID, "txn", "", "Transaction id to reuse when retrying")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func (a *app) billListCommand() *cobra.Command {
	var (
		statuses []string
		overdue  string
	)
	cmd := &cobra.Command{
		Use:   "list <customer>",
		Short: "List a customer's bills, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				c, err := resolveCustomer(cmd, s, args[0])
				if err != nil {
					return err
				}
				var opts bill.ListOpts
				for _, st := range statuses {
					status := bill.Status(strings.ToLower(st))
					if !status.IsValid() {
						return udhaar.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", st)}
					}
					opts.Statuses = append(opts.Statuses, status)
				}
				if opts.OverdueAsOf, err = parseDay(overdue); err != nil {
					return err
				}

				bills, err := s.ledger.ListBills(cmd.Context(), c.ID, opts)
				if err != nil {
					return err
				}
				return p.emit(bills, func(w *tabwriter.Writer) {
					row(w, "BILL", "DATE", "DUE", "TOTAL", "PAID", "REMAINING", "STATUS")
					for _, b := range bills {
						dueDay := "-"
						if b.DueDate != nil {
							dueDay = day(*b.DueDate)
						}
						row(w, b.ID, day(b.Date), dueDay, b.TotalAmount, b.PaidAmount, b.Remaining(), b.Status)
					}
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only bills with these statuses (pending, partial, paid)")
	cmd.Flags().StringVar(&overdue, "overdue", "", "Only bills overdue as of YYYY-MM-DD")
	return cmd
}

// parseItem reads "name:quantity:unit_price". The name may itself contain
// colons; the last two fields are always quantity and price.
func parseItem(raw, currency string) (bill.ItemInput, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return bill.ItemInput{}, fmt.Errorf("item %q: want name:quantity:unit_price", raw)
	}
	n := len(parts)
	qty, err := strconv.ParseInt(strings.TrimSpace(parts[n-2]), 10, 64)
	if err != nil {
		return bill.ItemInput{}, fmt.Errorf("item %q: quantity: %w", raw, err)
	}
	price, err := types.ParseMoney(strings.TrimSpace(parts[n-1]), currency)
	if err != nil {
		return bill.ItemInput{}, fmt.Errorf("item %q: unit price: %w", raw, err)
	}
	return bill.ItemInput{
		Name:      strings.Join(parts[:n-2], ":"),
		Quantity:  qty,
		UnitPrice: price,
	}, nil
}

func parseTxnID(s string) (id.TransactionID, error) {
	if s == "" {
		return id.Nil, nil
	}
	return id.ParseTransactionID(s)
}

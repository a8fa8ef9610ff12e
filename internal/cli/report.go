package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/internal/logger"
	"github.com/xraph/udhaar/query"
	"github.com/xraph/udhaar/transaction"
)

func (a *app) balanceCommand() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance <customer>",
		Short: "Show what a customer owes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				c, err := resolveCustomer(cmd, s, args[0])
				if err != nil {
					return err
				}
				at, err := parseDay(asOf)
				if err != nil {
					return err
				}
				sum, err := s.ledger.Summary(cmd.Context(), c.ID, at)
				if err != nil {
					return err
				}
				return p.emit(udhaar.CustomerSummary{Customer: c, Summary: sum}, func(w *tabwriter.Writer) {
					row(w, "customer", c.Name+" ("+c.ID.String()+")")
					row(w, "billed", sum.Billed)
					row(w, "received", sum.Received)
					row(w, "pending", sum.Pending)
					row(w, "overdue", sum.Overdue)
					row(w, "credit", sum.Credit)
					row(w, "bills", fmt.Sprintf("%d (%d pending, %d partial, %d paid)", sum.Bills,
						sum.ByStatus[bill.StatusPending], sum.ByStatus[bill.StatusPartial], sum.ByStatus[bill.StatusPaid]))
				})
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Compute overdue as of YYYY-MM-DD (default: now)")
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <customer>",
		Short: "Show a customer's journal with the running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				c, err := resolveCustomer(cmd, s, args[0])
				if err != nil {
					return err
				}
				h, err := s.ledger.History(cmd.Context(), c.ID)
				if err != nil {
					return err
				}
				return p.emit(h, func(w *tabwriter.Writer) {
					row(w, "DATE", "TYPE", "AMOUNT", "BALANCE", "REF")
					for _, e := range h {
						ref := e.Transaction.BillID.String()
						if e.Transaction.Type == transaction.TypePayment {
							ref = string(e.Transaction.Method)
						}
						row(w, day(e.Transaction.Date), e.Transaction.Type, e.Transaction.Amount, e.Balance, ref)
					}
				})
			})
		},
	}
}

func (a *app) dashboardCommand() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show shop-wide totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				at, err := parseDay(asOf)
				if err != nil {
					return err
				}
				t, err := s.ledger.Dashboard(cmd.Context(), at)
				if err != nil {
					return err
				}
				return p.emit(t, func(w *tabwriter.Writer) {
					row(w, "as of", day(t.AsOf))
					row(w, "pending", t.Pending)
					row(w, "overdue", t.Overdue)
					row(w, "credit", t.Credit)
					row(w, "customers", fmt.Sprintf("%d (%d with dues)", t.Customers, t.CustomersWithDues))
					row(w, "bills", fmt.Sprintf("%d (%d pending, %d partial, %d paid)", t.Bills,
						t.ByStatus[bill.StatusPending], t.ByStatus[bill.StatusPartial], t.ByStatus[bill.StatusPaid]))
				})
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Compute overdue as of YYYY-MM-DD (default: today)")
	return cmd
}

// verifyResult is one customer's replay check.
type verifyResult struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [customer...]",
		Short: "Replay journals and check them against stored bills",
		Long: `Replay each customer's journal through the allocation engine and compare
the result with the stored bills. With no arguments every customer is checked.
Exits non-zero when any book is corrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent("verify")
			start := time.Now()
			return a.run(cmd, false, func(s *session, p printer) error {
				// Customers come from the store listing so a corrupt book
				// can still be reported.
				all, err := s.ledger.ListCustomers(cmd.Context(), customer.ListOpts{})
				if err != nil {
					return err
				}
				targets := all
				if len(args) > 0 {
					targets = nil
					for _, ref := range args {
						c, err := pickCustomer(all, ref)
						if err != nil {
							return err
						}
						targets = append(targets, c)
					}
				}

				results := make([]verifyResult, 0, len(targets))
				var failed int
				for _, c := range targets {
					r := verifyResult{CustomerID: c.ID.String(), Name: c.Name, OK: true}
					if err := s.ledger.Verify(cmd.Context(), c.ID); err != nil {
						if !udhaar.IsCorrupt(err) {
							return err
						}
						r.OK, r.Error = false, err.Error()
						failed++
					}
					results = append(results, r)
				}

				log.Info().
					Int("customers", len(results)).
					Int("corrupt", failed).
					Dur("elapsed", time.Since(start)).
					Msg("verification finished")

				if err := p.emit(results, func(w *tabwriter.Writer) {
					row(w, "CUSTOMER", "NAME", "RESULT")
					for _, r := range results {
						result := "ok"
						if !r.OK {
							result = r.Error
						}
						row(w, r.CustomerID, r.Name, result)
					}
				}); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d customers failed verification: %w", failed, len(results), udhaar.ErrLedgerCorrupt)
				}
				return nil
			})
		},
	}
}

func pickCustomer(all []*customer.Customer, ref string) (*customer.Customer, error) {
	if custID, err := id.ParseCustomerID(ref); err == nil {
		for _, c := range all {
			if c.ID.Compare(custID) == 0 {
				return c, nil
			}
		}
		return nil, fmt.Errorf("customer %s: %w", ref, udhaar.ErrCustomerNotFound)
	}
	found := query.SearchCustomers(all, ref)
	if len(found) != 1 {
		return nil, errCustomerRef(ref, "does not match exactly one customer")
	}
	return found[0], nil
}

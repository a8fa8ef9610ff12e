package cli

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

func (a *app) payCommand() *cobra.Command {
	var (
		customerRef string
		amount      string
		method      string
		date        string
		notes       string
		txnID       string
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record a payment against a customer's open bills",
		Long: `Record a payment. The amount settles the customer's oldest open bills
first; anything left over is kept as credit.`,
		Example: `  udhaar pay --customer asha --amount 500
  udhaar pay --customer cust_01h2xcejqtf2nbrexx3vqjhp41 --amount 120.50 --method bank`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(s *session, p printer) error {
				c, err := resolveCustomer(cmd, s, customerRef)
				if err != nil {
					return err
				}
				m, err := types.ParseMoney(amount, a.cfg.Currency)
				if err != nil {
					return udhaar.ValidationError{Field: "amount", Message: err.Error()}
				}
				in := udhaar.PaymentInput{
					CustomerID: c.ID,
					Amount:     m,
					Method:     transaction.Method(method),
					Notes:      notes,
				}
				if in.Date, err = parseDay(date); err != nil {
					return err
				}
				if in.TransactionID, err = parseTxnID(txnID); err != nil {
					return err
				}

				r, err := s.ledger.RecordPayment(cmd.Context(), in)
				if err != nil {
					return err
				}
				return p.emit(r, func(w *tabwriter.Writer) {
					row(w, "BILL", "APPLIED", "BEFORE", "AFTER", "STATUS")
					for _, al := range r.Allocations {
						row(w, al.BillID, al.Applied, al.BalanceBefore, al.BalanceAfter,
							string(al.StatusBefore)+" -> "+string(al.StatusAfter))
					}
					row(w)
					row(w, "payment", r.Transaction.ID)
					row(w, "unapplied", r.Unapplied())
					row(w, "credit", r.Credit)
				})
			})
		},
	}
	cmd.Flags().StringVar(&customerRef, "customer", "", "Customer id or search term (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in major units, e.g. 120.50 (required)")
	cmd.Flags().StringVar(&method, "method", "cash", "Payment method: cash, bank or card")
	cmd.Flags().StringVar(&date, "date", "", "Payment date YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&txnID, "txn", "", "Transaction id to reuse when retrying")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

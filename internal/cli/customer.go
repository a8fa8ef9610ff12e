package cli

import (
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
)

func (a *app) customerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Register and find customers",
	}
	cmd.AddCommand(a.customerAddCommand(), a.customerListCommand(), a.customerSearchCommand())
	return cmd
}

func (a *app) customerAddCommand() *cobra.Command {
	var in udhaar.CustomerInput
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Register a new customer",
		Example: `  udhaar customer add --name "Asha Patel" --phone "+91 98200 12345"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(s *session, p printer) error {
				c, err := s.ledger.RegisterCustomer(cmd.Context(), in)
				if err != nil {
					return err
				}
				return p.emit(c, func(w *tabwriter.Writer) {
					row(w, "ID", "NAME", "PHONE")
					row(w, c.ID, c.Name, c.Phone)
				})
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Customer name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number (required)")
	cmd.Flags().StringVar(&in.Address, "address", "", "Address")
	return cmd
}

func (a *app) customerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List customers with their pending balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				sums, err := s.ledger.CustomerSummaries(cmd.Context(), time.Time{})
				if err != nil {
					return err
				}
				return p.emit(sums, func(w *tabwriter.Writer) {
					row(w, "ID", "NAME", "PHONE", "PENDING", "CREDIT")
					for _, cs := range sums {
						row(w, cs.Customer.ID, cs.Customer.Name, cs.Customer.Phone, cs.Pending, cs.Credit)
					}
				})
			})
		},
	}
}

func (a *app) customerSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "search <term>",
		Short:   "Find customers by name or phone prefix",
		Example: "  udhaar customer search patel\n  udhaar customer search 9820",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(s *session, p printer) error {
				found, err := s.ledger.SearchCustomers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.emit(found, func(w *tabwriter.Writer) {
					row(w, "ID", "NAME", "PHONE")
					for _, c := range found {
						row(w, c.ID, c.Name, c.Phone)
					}
				})
			})
		},
	}
}

// resolveCustomer accepts a customer id or a search term matching exactly
// one customer.
func resolveCustomer(cmd *cobra.Command, s *session, ref string) (*customer.Customer, error) {
	if custID, err := id.ParseCustomerID(ref); err == nil {
		return s.ledger.GetCustomer(cmd.Context(), custID)
	}
	found, err := s.ledger.SearchCustomers(cmd.Context(), ref)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, errCustomerRef(ref, "matches no customer")
	case 1:
		return found[0], nil
	default:
		return nil, errCustomerRef(ref, "matches more than one customer, use the id")
	}
}

func errCustomerRef(ref, reason string) error {
	return udhaar.ValidationError{Field: "customer", Message: "\"" + ref + "\" " + reason}
}

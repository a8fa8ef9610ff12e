package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/udhaar/internal/config"
	"github.com/xraph/udhaar/internal/logger"
)

var version = "0.1.0"

// app carries the resolved configuration and global flags into commands.
type app struct {
	cfg     config.Config
	jsonOut bool
}

// NewRootCommand builds the udhaar command tree over cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	a := &app{cfg: *cfg}

	root := &cobra.Command{
		Use:   "udhaar",
		Short: "Udhaar - shop credit ledger",
		Long: `Udhaar keeps a shop's customer credit book: bills issued on credit,
payments received, and what every customer still owes.

Payments settle the oldest open bills first. Overpayments are kept as
credit for the customer. All data lives in one JSON snapshot file
(UDHAAR_DATA_FILE, or --data).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfg.DataFile, "data", a.cfg.DataFile, "Path to the ledger snapshot file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		a.customerCommand(),
		a.billCommand(),
		a.payCommand(),
		a.balanceCommand(),
		a.historyCommand(),
		a.dashboardCommand(),
		a.verifyCommand(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")

	if err := NewRootCommand(cfg).Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run opens a session, calls fn, and saves the snapshot when fn mutated
// the ledger and succeeded.
func (a *app) run(cmd *cobra.Command, mutates bool, fn func(s *session, p printer) error) error {
	s, err := openSession(cmd.Context(), &a.cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s, printer{out: cmd.OutOrStdout(), json: a.jsonOut}); err != nil {
		return err
	}
	if mutates {
		return s.save()
	}
	return nil
}

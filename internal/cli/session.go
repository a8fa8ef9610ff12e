package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/internal/config"
	"github.com/xraph/udhaar/internal/logger"
	"github.com/xraph/udhaar/store/memory"
)

// session is one CLI invocation: a ledger over a memory store loaded from
// the snapshot file.
type session struct {
	path   string
	store  *memory.Store
	ledger *udhaar.Ledger
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log := logger.WithComponent("session")

	s := memory.New()
	f, err := os.Open(cfg.DataFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("file", cfg.DataFile).Msg("no snapshot yet, starting empty")
	case err != nil:
		return nil, fmt.Errorf("open snapshot: %w", err)
	default:
		importErr := s.Import(f)
		f.Close()
		if importErr != nil {
			return nil, importErr
		}
	}

	credit, err := allocation.ParseCreditPolicy(cfg.CreditPolicy)
	if err != nil {
		return nil, err
	}
	l := udhaar.New(s,
		udhaar.WithLogger(logger.Slog("ledger")),
		udhaar.WithCurrency(cfg.Currency),
		udhaar.WithCreditPolicy(credit),
		udhaar.WithAllocationPolicyName(cfg.AllocationPolicy),
		udhaar.WithPersistTimeout(cfg.PersistTimeout),
	)
	if err := l.Start(ctx); err != nil {
		return nil, err
	}
	return &session{path: cfg.DataFile, store: s, ledger: l}, nil
}

// save writes the snapshot to a temp file beside the target and renames it
// into place.
func (s *session) save() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".udhaar-*.json")
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.store.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.WithComponent("session").Debug().Str("file", s.path).Msg("snapshot saved")
	return nil
}

func (s *session) close() {
	if err := s.ledger.Stop(); err != nil {
		logger.WithComponent("session").Warn().Err(err).Msg("ledger stop failed")
	}
}

package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/funmoney-network/pplp/internal/api"
	"github.com/funmoney-network/pplp/internal/chain"
	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/events"
	"github.com/funmoney-network/pplp/internal/ledger"
	"github.com/funmoney-network/pplp/internal/mint"
	"github.com/funmoney-network/pplp/internal/policy"
	"github.com/funmoney-network/pplp/internal/reputation"
	"github.com/funmoney-network/pplp/internal/scoring"
	"github.com/funmoney-network/pplp/internal/sqlite"
)

// Daemon owns the wired service graph and the HTTP listener.
type Daemon struct {
	cfg    Config
	db     *sqlite.DB
	server *http.Server
}

// New wires all services from the configuration.
func New(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create state dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Ledger.DBPath)
	if err != nil {
		return nil, err
	}

	catalog, err := policy.LoadDir(cfg.Policy.BundleDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	tracker := reputation.NewTracker()
	scorer := scoring.New(catalog, scoring.DefaultConfig())
	srv := api.NewServer(scorer, catalog, tracker)

	if cfg.Chain.RPCURL != "" && cfg.Chain.Contract != "" {
		client := chain.NewClient(cfg.Chain.RPCURL)
		srv.SetValidator(chain.NewValidator(client, chain.Config{
			Contract:      cfg.Chain.Contract,
			ChainID:       cfg.Chain.ChainID,
			EpochDuration: time.Duration(cfg.Chain.EpochDuration) * time.Second,
		}))
	}

	if groups := cfg.Governance.Groups(); nonEmpty(groups) {
		g, err := mint.NewGroups(groups)
		if err != nil {
			db.Close()
			return nil, err
		}
		srv.SetMint(mint.NewManager(db, g), db)
	}

	var auditor ledger.Auditor = ledger.NopAuditor{}
	if cfg.Ledger.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.Ledger.AuditLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("daemon: open audit log: %w", err)
		}
		auditor = ledger.NewAuditorWithWriter(f)
	}
	srv.SetWallet(ledger.NewService(db, auditor))
	srv.SetIngestor(events.NewIngestor(db))

	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	return &Daemon{
		cfg: cfg,
		db:  db,
		server: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func nonEmpty(groups map[domain.GroupID][]string) bool {
	for _, members := range groups {
		if len(members) > 0 {
			return true
		}
	}
	return false
}

// Run serves HTTP until the context is canceled, then shuts down cleanly.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("pplp: listening on %s", d.cfg.ListenAddr())
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.db.Close()
			return err
		}
		return d.db.Close()
	case err := <-errCh:
		d.db.Close()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finledger/finledger/pkg/asset"
	"github.com/finledger/finledger/pkg/audit"
	"github.com/finledger/finledger/pkg/config"
	"github.com/finledger/finledger/pkg/journal"
	"github.com/finledger/finledger/pkg/ledger"
	"github.com/finledger/finledger/pkg/metrics"
)

// state is the full in-memory picture ledgerctl reconstructs on every
// invocation: the asset registry and accounts live in a small JSON side
// file (accountsFileName) since spec.md's Ledger/Journal types don't
// themselves define an account-directory format; the journal and the
// audit proof chain are each replayed from their own append-only files.
type state struct {
	cfg      *config.Config
	registry *asset.Registry
	ledger   *ledger.Ledger
	journal  *journal.Journal
	chain    *audit.ProofChain

	metricsReg *prometheus.Registry
	metrics    *metrics.Metrics

	index  *journal.KVIndex
	mirror *journal.PGMirror
}

// Close releases any optional resources loadState opened (index, mirror).
func (s *state) Close() error {
	var firstErr error
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			firstErr = err
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

const (
	accountsFileName = "accounts.json"
	chainFileName    = "audit_chain.jsonl"
	indexDBName      = "ledgerctl-index"
)

type accountRecord struct {
	Name     string
	Currency string
	Type     ledger.AccountType
}

func accountsPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, accountsFileName)
}

func chainPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, chainFileName)
}

func loadAccounts(cfg *config.Config) ([]accountRecord, error) {
	data, err := os.ReadFile(accountsPath(cfg))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var out []accountRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	return out, nil
}

func saveAccounts(cfg *config.Config, accounts []accountRecord) error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if err := os.WriteFile(accountsPath(cfg), data, 0o600); err != nil {
		return fmt.Errorf("write accounts file: %w", err)
	}
	return nil
}

// loadState reconstructs the registry, ledger, journal, and audit proof
// chain from disk. Missing files are treated as an empty starting state,
// not an error — the very first command run against a fresh data
// directory must work.
func loadState(cfg *config.Config) (*state, error) {
	registry := asset.NewRegistry()
	if cfg.AssetSeedPath != "" {
		assets, err := asset.LoadSeed(cfg.AssetSeedPath)
		if err != nil {
			return nil, err
		}
		for _, a := range assets {
			if err := registry.Register(a); err != nil {
				return nil, err
			}
		}
	}

	l := ledger.New(registry)

	accounts, err := loadAccounts(cfg)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if _, err := registry.Lookup(a.Currency); err != nil {
			if err := registry.Register(asset.Asset{ID: a.Currency, Kind: asset.KindNative}); err != nil {
				return nil, err
			}
		}
		if err := l.CreateAccount(ledger.Account{Name: a.Name, Currency: a.Currency, Type: a.Type}); err != nil {
			return nil, err
		}
	}

	opts, index, mirror, err := journalOptions(cfg)
	if err != nil {
		return nil, err
	}

	j, err := openJournal(cfg, opts...)
	if err != nil {
		return nil, err
	}

	for _, e := range j.Entries() {
		if err := l.ProcessTransaction(e.Transaction); err != nil {
			return nil, fmt.Errorf("replay journal entry %d: %w", e.Sequence, err)
		}
	}

	chain, err := audit.LoadChain(chainPath(cfg))
	if err != nil {
		return nil, err
	}

	st := &state{
		cfg:      cfg,
		registry: registry,
		ledger:   l,
		journal:  j,
		chain:    chain,
		index:    index,
		mirror:   mirror,
	}

	if cfg.MetricsEnabled {
		st.metricsReg = prometheus.NewRegistry()
		st.metrics = metrics.New(st.metricsReg)
	}

	return st, nil
}

// journalOptions builds the optional journal.Option set (lookup index,
// Postgres mirror) implied by cfg, along with the underlying resources
// the caller must Close when done.
func journalOptions(cfg *config.Config) ([]journal.Option, *journal.KVIndex, *journal.PGMirror, error) {
	var opts []journal.Option
	var index *journal.KVIndex
	var mirror *journal.PGMirror

	if cfg.IndexDir != "" {
		idx, err := journal.NewPersistentKVIndex(indexDBName, cfg.IndexDir)
		if err != nil {
			return nil, nil, nil, err
		}
		index = idx
		opts = append(opts, journal.WithIndex(idx))
	}

	if cfg.PostgresDSN != "" {
		m, err := journal.NewPGMirror(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		mirror = m
		opts = append(opts, journal.WithMirror(m))
	}

	return opts, index, mirror, nil
}

// openJournal loads the journal file if present, according to whether
// encryption is configured, or returns a fresh empty journal otherwise.
func openJournal(cfg *config.Config, opts ...journal.Option) (*journal.Journal, error) {
	if _, err := os.Stat(cfg.JournalPath); os.IsNotExist(err) {
		return journal.New(opts...), nil
	}

	if cfg.EncryptionEnabled {
		password, err := resolveSecret(cfg.EncryptionKeyEnv)
		if err != nil {
			return nil, err
		}
		params := kdfParams(cfg)
		return journal.LoadEncrypted(cfg.JournalPath, password, params, opts...)
	}
	return journal.LoadPlain(cfg.JournalPath, opts...)
}

// saveJournal writes j back to cfg.JournalPath, honoring the same
// encryption setting used to load it.
func saveJournal(cfg *config.Config, j *journal.Journal) error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if cfg.EncryptionEnabled {
		password, err := resolveSecret(cfg.EncryptionKeyEnv)
		if err != nil {
			return err
		}
		return j.SaveEncrypted(cfg.JournalPath, password, kdfParams(cfg))
	}
	return j.SavePlain(cfg.JournalPath)
}

// saveChain writes the audit proof chain back to its side file.
func saveChain(cfg *config.Config, c *audit.ProofChain) error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return c.Save(chainPath(cfg))
}

func resolveSecret(envVar string) ([]byte, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return nil, fmt.Errorf("environment variable %s is not set", envVar)
	}
	return []byte(value), nil
}

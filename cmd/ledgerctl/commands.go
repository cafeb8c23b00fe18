package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/finledger/finledger/pkg/asset"
	"github.com/finledger/finledger/pkg/audit"
	"github.com/finledger/finledger/pkg/config"
	"github.com/finledger/finledger/pkg/crypto/keys"
	"github.com/finledger/finledger/pkg/ledger"
	"github.com/finledger/finledger/pkg/merkle"
	"github.com/finledger/finledger/pkg/storage"
	"github.com/finledger/finledger/pkg/txn"
)

func kdfParams(cfg *config.Config) storage.KDFParams {
	return storage.KDFParams{
		Time:    cfg.KDFTime,
		Memory:  cfg.KDFMemoryKiB,
		Threads: cfg.KDFThreads,
	}
}

// domainErr signals a failure the caller should report with exit code 2,
// as opposed to a flag-parsing/usage mistake (exit code 1).
type domainErr struct{ err error }

func (d domainErr) Error() string { return d.err.Error() }
func domainf(format string, args ...any) error {
	return domainErr{fmt.Errorf(format, args...)}
}

// accountCreatedEvent is the audit.EventAccountCreated payload.
type accountCreatedEvent struct {
	Name     string             `json:"name"`
	Currency string             `json:"currency"`
	Type     ledger.AccountType `json:"type"`
}

// assetRegisteredEvent is the audit.EventAssetRegistered payload.
type assetRegisteredEvent struct {
	Currency string `json:"currency"`
}

// transactionEvent is the shared payload shape for
// EventTransactionProcessed, EventTransactionRolledBack, and
// EventBalanceUpdated.
type transactionEvent struct {
	TxID        string `json:"tx_id"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func appendAuditEvent(st *state, kind audit.EventKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	if _, err := st.chain.AppendEvent(kind, data); err != nil {
		return err
	}
	return saveChain(st.cfg, st.chain)
}

func cmdAccountCreate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("account create", flag.ContinueOnError)
	fs.Parse(args)
	if fs.NArg() != 3 {
		return fmt.Errorf("usage: ledgerctl account create <name> <type> <currency>")
	}
	name, accountType, currency := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	if _, err := st.registry.Lookup(currency); err != nil {
		if err := st.registry.Register(asset.Asset{ID: currency, Kind: asset.KindNative}); err != nil {
			return domainErr{err}
		}
		if err := appendAuditEvent(st, audit.EventAssetRegistered, assetRegisteredEvent{Currency: currency}); err != nil {
			return domainErr{err}
		}
	}

	account := ledger.Account{Name: name, Currency: currency, Type: ledger.AccountType(accountType), CreatedAt: time.Now().UTC()}
	if err := st.ledger.CreateAccount(account); err != nil {
		return domainErr{err}
	}

	accounts, err := loadAccounts(cfg)
	if err != nil {
		return domainErr{err}
	}
	accounts = append(accounts, accountRecord{Name: name, Currency: currency, Type: ledger.AccountType(accountType)})
	if err := saveAccounts(cfg, accounts); err != nil {
		return domainErr{err}
	}

	if err := appendAuditEvent(st, audit.EventAccountCreated, accountCreatedEvent{Name: name, Currency: currency, Type: ledger.AccountType(accountType)}); err != nil {
		return domainErr{err}
	}

	fmt.Printf("created account %q (%s, %s)\n", name, accountType, currency)
	return nil
}

func cmdAccountList(cfg *config.Config, args []string) error {
	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()
	for _, a := range st.ledger.Accounts() {
		fmt.Printf("%-20s %-10s %-8s %d\n", a.Name, a.Type, a.Currency, a.Balance)
	}
	return nil
}

// cmdTxAdd applies a transaction under ProcessWithRollback so that a
// journal append failure after a successful ledger mutation can be
// cleanly undone: the ledger never ends up holding a transaction that
// was not also durably recorded.
func cmdTxAdd(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tx add", flag.ContinueOnError)
	from := fs.String("from", "", "source account")
	to := fs.String("to", "", "destination account")
	amount := fs.Int64("amount", 0, "amount in the asset's smallest unit")
	currency := fs.String("currency", "", "asset id")
	memo := fs.String("memo", "", "optional memo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" || *currency == "" || *amount == 0 {
		return fmt.Errorf("usage: ledgerctl tx add --from A --to B --amount N --currency C [--memo M]")
	}

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	t, err := txn.New(time.Now().UTC().UnixNano(), *amount, *currency, *from, *to, *memo, "")
	if err != nil {
		return domainErr{err}
	}

	event := transactionEvent{TxID: t.ID, FromAccount: t.FromAccount, ToAccount: t.ToAccount, Amount: t.Amount, Currency: t.Currency}

	if err := st.ledger.ProcessWithRollback(t); err != nil {
		return domainErr{err}
	}

	appendStart := time.Now()
	_, appendErr := st.journal.Append(t)
	if st.metrics != nil {
		st.metrics.JournalAppendDuration.Observe(time.Since(appendStart).Seconds())
	}
	if appendErr != nil {
		if rbErr := st.ledger.Rollback(t.ID); rbErr != nil {
			return domainErr{fmt.Errorf("journal append failed (%v), and rollback also failed: %w", appendErr, rbErr)}
		}
		if st.metrics != nil {
			st.metrics.TransactionsRolledBack.Inc()
		}
		if auditErr := appendAuditEvent(st, audit.EventTransactionRolledBack, event); auditErr != nil {
			return domainErr{auditErr}
		}
		return domainErr{appendErr}
	}

	if err := saveJournal(cfg, st.journal); err != nil {
		return domainErr{err}
	}
	st.ledger.Commit(t.ID)

	if st.metrics != nil {
		st.metrics.TransactionsProcessed.Inc()
		st.metrics.JournalAppends.Inc()
	}

	if err := appendAuditEvent(st, audit.EventTransactionProcessed, event); err != nil {
		return domainErr{err}
	}
	if err := appendAuditEvent(st, audit.EventBalanceUpdated, event); err != nil {
		return domainErr{err}
	}

	fmt.Printf("recorded transaction %s\n", t.ID)
	return nil
}

func cmdBalance(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ledgerctl balance <name>")
	}

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()
	a, ok := st.ledger.Account(fs.Arg(0))
	if !ok {
		return domainf("unknown account %q", fs.Arg(0))
	}
	fmt.Printf("%s: %d %s\n", a.Name, a.Balance, a.Currency)
	return nil
}

func cmdAuditVerify(cfg *config.Config, args []string) error {
	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()
	if err := st.journal.VerifyIntegrity(); err != nil {
		return domainf("journal integrity check failed: %v", err)
	}
	if !st.ledger.VerifyDoubleEntry() {
		return domainf("double-entry invariant violated")
	}
	if err := st.chain.VerifyChain(); err != nil {
		return domainf("audit proof chain verification failed: %v", err)
	}
	fmt.Println("ok")
	return nil
}

func cmdAuditReport(cfg *config.Config, args []string) error {
	auditKey, err := resolveSecret(cfg.AuditKeyEnv)
	if err != nil {
		return domainErr{err}
	}

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	report, err := audit.Audit(st.ledger, st.journal, auditKey)
	if err != nil {
		return domainErr{err}
	}
	if st.metrics != nil {
		st.metrics.ObserveAudit(len(report.BalanceDiscrepancies))
	}
	out, err := report.ToJSON()
	if err != nil {
		return domainErr{err}
	}
	fmt.Println(string(out))
	if !report.IsValid() {
		return domainf("audit report is not fully valid")
	}
	return nil
}

// systemCheckpointEvent is the audit.EventSystemCheckpoint payload: a
// Merkle attestation over every transaction currently in the journal.
type systemCheckpointEvent struct {
	BatchID string `json:"batch_id"`
	Root    string `json:"root"`
	Size    int    `json:"size"`
}

// cmdAuditCheckpoint attests the current journal with a Merkle batch and
// records the root in the audit proof chain, giving the ledger the
// periodic, independently-verifiable checkpoint spec.md §2 describes.
func cmdAuditCheckpoint(cfg *config.Config, args []string) error {
	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	leaves, err := st.journal.CanonicalLeaves()
	if err != nil {
		return domainErr{err}
	}

	_, batch, err := merkle.BuildBatch(time.Now().UTC(), leaves)
	if err != nil {
		return domainErr{err}
	}

	event := systemCheckpointEvent{BatchID: batch.BatchID.String(), Root: hex.EncodeToString(batch.Root[:]), Size: batch.Size}
	if err := appendAuditEvent(st, audit.EventSystemCheckpoint, event); err != nil {
		return domainErr{err}
	}

	fmt.Printf("checkpoint batch %s: %d transactions, root %s\n", batch.BatchID, batch.Size, event.Root)
	return nil
}

func cmdJournalList(cfg *config.Config, args []string) error {
	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()
	for _, e := range st.journal.Entries() {
		fmt.Printf("%d %s %s->%s %d %s\n", e.Sequence, e.Transaction.ID, e.Transaction.FromAccount, e.Transaction.ToAccount, e.Transaction.Amount, e.Transaction.Currency)
	}
	return nil
}

func cmdJournalExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("journal export", flag.ContinueOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ledgerctl journal export <file>")
	}

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	entries := st.journal.Entries()
	txs := make([]*txn.Transaction, len(entries))
	for i, e := range entries {
		txs[i] = e.Transaction
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return domainErr{err}
	}
	if err := os.WriteFile(fs.Arg(0), data, 0o600); err != nil {
		return domainErr{err}
	}
	fmt.Printf("exported %d transactions to %s\n", len(txs), fs.Arg(0))
	return nil
}

// cmdMetricsShow gathers every registered metric and prints it in
// Prometheus text exposition form. It fails if metrics are not enabled,
// since there is then nothing gathered to show.
func cmdMetricsShow(cfg *config.Config, args []string) error {
	if !cfg.MetricsEnabled {
		return domainf("metrics are not enabled (set FINLEDGER_METRICS_ENABLED=true)")
	}

	st, err := loadState(cfg)
	if err != nil {
		return domainErr{err}
	}
	defer st.Close()

	families, err := st.metricsReg.Gather()
	if err != nil {
		return domainErr{err}
	}
	for _, mf := range families {
		fmt.Println(mf.String())
	}
	return nil
}

func cmdKeygen(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", cfg.SigningKeyPath, "path to write the private key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("usage: ledgerctl keygen --out <file>")
	}

	m := keys.NewManager(*out)
	if err := m.Generate(); err != nil {
		return domainErr{err}
	}
	fmt.Printf("wrote key to %s\npublic key: %s\n", *out, m.PublicKeyHex())
	return nil
}

func cmdSign(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	in := fs.String("in", "", "file to sign")
	keyPath := fs.String("key", cfg.SigningKeyPath, "path to the private key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *keyPath == "" {
		return fmt.Errorf("usage: ledgerctl sign --in file --key keyfile")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return domainErr{err}
	}

	m := keys.NewManager(*keyPath)
	if err := m.Load(); err != nil {
		return domainErr{err}
	}

	sig := ed25519.Sign(m.PrivateKey(), data)
	fmt.Println(hex.EncodeToString(sig))
	return nil
}

// cmdVerify checks a detached signature against a file. spec.md's CLI
// table lists no --key flag for this command, but verifying a signature
// is meaningless without the public key to check it against — we add
// --key here; see DESIGN.md.
func cmdVerify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	in := fs.String("in", "", "file that was signed")
	sigPath := fs.String("sig", "", "file containing the hex-encoded signature")
	keyPath := fs.String("key", cfg.SigningKeyPath, "path to the public key's owning private key file, or a bare hex public key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *sigPath == "" || *keyPath == "" {
		return fmt.Errorf("usage: ledgerctl verify --in file --sig sigfile --key keyfile")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return domainErr{err}
	}
	sigHex, err := os.ReadFile(*sigPath)
	if err != nil {
		return domainErr{err}
	}
	sig, err := hex.DecodeString(trimNewline(string(sigHex)))
	if err != nil {
		return domainf("malformed signature file: %v", err)
	}

	pub, err := resolvePublicKey(*keyPath)
	if err != nil {
		return domainErr{err}
	}

	if !ed25519.Verify(pub, data, sig) {
		return domainf("signature does not verify")
	}
	fmt.Println("ok")
	return nil
}

// resolvePublicKey accepts either a raw hex-encoded ed25519 public key,
// or a path to a private key file (as written by keygen), from which the
// public half is derived.
func resolvePublicKey(keyPath string) (ed25519.PublicKey, error) {
	if decoded, err := hex.DecodeString(keyPath); err == nil && len(decoded) == ed25519.PublicKeySize {
		return ed25519.PublicKey(decoded), nil
	}
	m := keys.NewManager(keyPath)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m.PublicKey(), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

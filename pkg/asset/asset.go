// Package asset identifies currencies and tokens tracked by the ledger
// and carries the per-asset policy (freeze, transaction limits) enforced
// before a transaction is applied.
package asset

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/finledger/finledger/pkg/ledgererr"
)

// Sentinel errors for asset operations.
var (
	ErrAssetAlreadyExists      = errors.New("asset: already exists")
	ErrAssetNotFound           = errors.New("asset: not found")
	ErrAssetFrozen             = errors.New("asset: frozen")
	ErrTransactionAmountTooLarge = errors.New("asset: transaction amount exceeds per-transaction limit")
)

// Kind enumerates the closed set of asset categories. Modeled as a tagged
// variant rather than subtyping, per spec.md's design notes.
type Kind string

const (
	KindNative      Kind = "native"
	KindToken       Kind = "token"
	KindNonFungible Kind = "non-fungible"
	KindSynthetic   Kind = "synthetic"
	KindStable      Kind = "stable"
)

// Metadata carries the descriptive and supply facts about an asset.
type Metadata struct {
	Symbol      string
	Name        string
	Decimals    int // in [0, 18]
	TotalSupply *int64
	Issuer      string
	CreatedAt   time.Time
}

// Policy governs whether a transaction in this asset is allowed to
// proceed; DailyLimit is informational only and is not enforced by
// validate_tx (no time-windowed accumulator exists in this core).
type Policy struct {
	MaxTransactionAmount *int64
	DailyLimit           *int64
	Frozen               bool
	RequiresApproval     bool
	WhitelistOnly        bool
}

// Asset is uniquely identified by a short string id, e.g. "USD" or "BTC".
type Asset struct {
	ID       string
	Kind     Kind
	Metadata Metadata
	Policy   Policy
}

// clone returns a deep-enough copy so registry callers cannot mutate
// internal state through a returned value.
func (a Asset) clone() Asset {
	out := a
	if a.Metadata.TotalSupply != nil {
		v := *a.Metadata.TotalSupply
		out.Metadata.TotalSupply = &v
	}
	if a.Policy.MaxTransactionAmount != nil {
		v := *a.Policy.MaxTransactionAmount
		out.Policy.MaxTransactionAmount = &v
	}
	if a.Policy.DailyLimit != nil {
		v := *a.Policy.DailyLimit
		out.Policy.DailyLimit = &v
	}
	return out
}

// ExchangeRate is an advisory conversion rate between two assets, never
// itself authorizing a cross-asset transaction.
type ExchangeRate struct {
	From string
	To   string
	Rate *big.Rat
	AsOf time.Time
}

// Registry maps asset id to Asset (keys unique) and holds the optional
// exchange-rate table. Single-writer, same concurrency contract as
// ledger.Ledger: callers sharing a Registry across goroutines must
// synchronize externally.
type Registry struct {
	assets AssetMap
	rates  map[string]ExchangeRate // keyed by "from:to"
}

// AssetMap is exported so callers can type-assert a snapshot shape; it is
// never mutated directly by Registry's own methods.
type AssetMap = map[string]Asset

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		assets: make(AssetMap),
		rates:  make(map[string]ExchangeRate),
	}
}

// Register inserts a clone of asset; fails if the id is already present.
func (r *Registry) Register(a Asset) error {
	if _, exists := r.assets[a.ID]; exists {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetAlreadyExists, a.ID)
	}
	if a.Metadata.CreatedAt.IsZero() {
		a.Metadata.CreatedAt = time.Now().UTC()
	}
	r.assets[a.ID] = a.clone()
	return nil
}

// Lookup returns a clone of the asset identified by id.
func (r *Registry) Lookup(id string) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, ledgererr.Wrap(ledgererr.KindValidation, ErrAssetNotFound, id)
	}
	return a.clone(), nil
}

// Freeze marks id as frozen; subsequent validate_tx calls fail until
// Unfreeze.
func (r *Registry) Freeze(id string) error {
	a, ok := r.assets[id]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetNotFound, id)
	}
	a.Policy.Frozen = true
	r.assets[id] = a
	return nil
}

// Unfreeze clears the frozen flag.
func (r *Registry) Unfreeze(id string) error {
	a, ok := r.assets[id]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetNotFound, id)
	}
	a.Policy.Frozen = false
	r.assets[id] = a
	return nil
}

// SetTxLimit sets the per-transaction maximum amount for id.
func (r *Registry) SetTxLimit(id string, n int64) error {
	a, ok := r.assets[id]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetNotFound, id)
	}
	a.Policy.MaxTransactionAmount = &n
	r.assets[id] = a
	return nil
}

// ValidateTx checks whether a transaction of amount (absolute value) in
// asset id is permitted to proceed: unknown asset, frozen asset, and
// over-the-limit amount are all rejected.
func (r *Registry) ValidateTx(id string, amount int64) error {
	a, ok := r.assets[id]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetNotFound, id)
	}
	if a.Policy.Frozen {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAssetFrozen, id)
	}
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	if a.Policy.MaxTransactionAmount != nil && abs > *a.Policy.MaxTransactionAmount {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrTransactionAmountTooLarge,
			fmt.Sprintf("%s: amount %d exceeds limit %d", id, abs, *a.Policy.MaxTransactionAmount))
	}
	return nil
}

// SetRate records an advisory exchange rate between two assets.
func (r *Registry) SetRate(rate ExchangeRate) {
	r.rates[rateKey(rate.From, rate.To)] = rate
}

// Convert computes floor(amount * rate) using exact rational arithmetic.
// Conversion never authorizes a cross-asset transaction; it is read-only
// and advisory.
func (r *Registry) Convert(amount int64, from, to string) (int64, error) {
	rate, ok := r.rates[rateKey(from, to)]
	if !ok {
		return 0, fmt.Errorf("asset: no exchange rate from %s to %s", from, to)
	}
	product := new(big.Rat).Mul(new(big.Rat).SetInt64(amount), rate.Rate)
	// big.Int.Div is Euclidean division; Denom() is always positive, so
	// this rounds toward negative infinity (floor) for either sign.
	q := new(big.Int).Div(product.Num(), product.Denom())
	return q.Int64(), nil
}

func rateKey(from, to string) string { return from + ":" + to }

// Snapshot returns a copy of every registered asset, for diagnostics and
// audit export.
func (r *Registry) Snapshot() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a.clone())
	}
	return out
}


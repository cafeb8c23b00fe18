package asset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of an asset-registry seed file; a thin
// YAML projection of Asset that keeps pointer fields as plain values with
// zero meaning "unset" (good enough for bootstrap data, which rarely
// needs to distinguish "zero limit" from "no limit").
type seedFile struct {
	Assets []seedAsset `yaml:"assets"`
}

type seedAsset struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals int    `yaml:"decimals"`
	Issuer   string `yaml:"issuer,omitempty"`

	MaxTransactionAmount int64 `yaml:"max_transaction_amount,omitempty"`
	DailyLimit           int64 `yaml:"daily_limit,omitempty"`
	Frozen               bool  `yaml:"frozen,omitempty"`
	RequiresApproval     bool  `yaml:"requires_approval,omitempty"`
	WhitelistOnly        bool  `yaml:"whitelist_only,omitempty"`
}

// LoadSeed reads a YAML asset-registry seed file and returns the Assets it
// describes, so a host can bootstrap a Registry declaratively instead of
// calling Register for every asset in code.
func LoadSeed(path string) ([]Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asset: read seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("asset: parse seed file: %w", err)
	}

	out := make([]Asset, 0, len(sf.Assets))
	for _, sa := range sf.Assets {
		a := Asset{
			ID:   sa.ID,
			Kind: Kind(sa.Kind),
			Metadata: Metadata{
				Symbol:   sa.Symbol,
				Name:     sa.Name,
				Decimals: sa.Decimals,
				Issuer:   sa.Issuer,
			},
			Policy: Policy{
				Frozen:           sa.Frozen,
				RequiresApproval: sa.RequiresApproval,
				WhitelistOnly:    sa.WhitelistOnly,
			},
		}
		if sa.MaxTransactionAmount != 0 {
			v := sa.MaxTransactionAmount
			a.Policy.MaxTransactionAmount = &v
		}
		if sa.DailyLimit != 0 {
			v := sa.DailyLimit
			a.Policy.DailyLimit = &v
		}
		out = append(out, a)
	}
	return out, nil
}

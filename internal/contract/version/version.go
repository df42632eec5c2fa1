// Package version records which contract kind and release wrote a
// contract's state, and decides whether a migration may proceed.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

var (
	ErrWrongContract = fmt.Errorf("can only upgrade from the same contract type: %w", domain.ErrInvalidState)
	ErrNotNewer      = fmt.Errorf("cannot upgrade from a newer or equal version: %w", domain.ErrInvalidState)
)

type Info struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

var infoItem = storage.NewItem[Info]("contract_info")

func Set(kv store.KV, contract, version string) error {
	return infoItem.Save(kv, Info{Contract: contract, Version: version})
}

func Get(kv store.KV) (Info, error) {
	return infoItem.Load(kv)
}

// CheckUpgrade allows a migration to (contract, version) only from the same
// contract at a strictly lower semantic version.
func CheckUpgrade(stored Info, contract, version string) error {
	if stored.Contract != contract {
		return fmt.Errorf("%q -> %q: %w", stored.Contract, contract, ErrWrongContract)
	}
	from, to := canonical(stored.Version), canonical(version)
	if !semver.IsValid(from) || !semver.IsValid(to) {
		return fmt.Errorf("version %q -> %q: %w", stored.Version, version, domain.ErrValidation)
	}
	if semver.Compare(from, to) >= 0 {
		return fmt.Errorf("%s -> %s: %w", stored.Version, version, ErrNotNewer)
	}
	return nil
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

package version

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
)

type MigrateMsg struct {
	Owner string `json:"owner"`
}

// Migrate upgrades stored state written by an older release of the named
// contract to version. It rewrites the capability record with the new owner
// and bumps the stored version.
func Migrate(deps contract.Deps, name, version string, raw json.RawMessage) (*response.Response, error) {
	const op = "version.Migrate"

	var m MigrateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	stored, err := Get(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := CheckUpgrade(stored, name, version); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	owner, err := deps.API.Validate(m.Owner)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	cfg, err := ownable.ConfigItem.Load(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	cfg.Owner = owner
	if err := ownable.ConfigItem.Save(deps.Storage, cfg); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := Set(deps.Storage, name, version); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "migrate").
		AddAttribute("from_version", stored.Version).
		AddAttribute("to_version", version).
		AddAttribute("owner", owner.String()), nil
}

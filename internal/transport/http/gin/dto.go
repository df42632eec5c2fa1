package httpgin

import (
	"encoding/json"
	"time"

	"github.com/kirinyoku/seat-market/internal/domain"
)

type InstantiateRequest struct {
	Kind   string          `json:"kind" binding:"required,oneof=seat hub"`
	Sender string          `json:"sender" binding:"required"`
	Funds  domain.Coins    `json:"funds"`
	Msg    json.RawMessage `json:"msg" binding:"required"`
}

type ExecuteRequest struct {
	Sender string          `json:"sender" binding:"required"`
	Funds  domain.Coins    `json:"funds"`
	Msg    json.RawMessage `json:"msg" binding:"required"`
}

type QueryRequest struct {
	Msg json.RawMessage `json:"msg" binding:"required"`
}

type MigrateRequest struct {
	Msg json.RawMessage `json:"msg" binding:"required"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Module string `json:"module,omitempty"`
}

type ContractResponse struct {
	Address   domain.Addr `json:"address"`
	Kind      string      `json:"kind"`
	Creator   domain.Addr `json:"creator"`
	Height    uint64      `json:"height"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

func contractResponse(inst *domain.Instance) ContractResponse {
	return ContractResponse{
		Address:   inst.Address,
		Kind:      inst.Kind,
		Creator:   inst.Creator,
		Height:    inst.Height,
		CreatedAt: inst.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: inst.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

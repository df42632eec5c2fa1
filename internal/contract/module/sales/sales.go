// Package sales runs primary sales: time-windowed, quantity-capped minting of
// new tokens at a fixed price.
package sales

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/module/token"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const Name = "sales"

var (
	ErrNoActiveSale  = fmt.Errorf("no active primary sale: %w", domain.ErrInvalidState)
	ErrSaleActive    = fmt.Errorf("a primary sale is already active: %w", domain.ErrInvalidState)
	ErrNoSale        = fmt.Errorf("primary sale: %w", domain.ErrNotFound)
	ErrPriceMismatch = fmt.Errorf("attached funds must equal the sale price: %w", domain.ErrValidation)
	ErrZeroSupply    = fmt.Errorf("total supply must be positive: %w", domain.ErrValidation)
	ErrBadWindow     = fmt.Errorf("start time must be before end time: %w", domain.ErrValidation)
)

// Sale is one stored primary sale record.
type Sale struct {
	TotalSupply uint64           `json:"total_supply,string"`
	StartTime   domain.Timestamp `json:"start_time"`
	EndTime     domain.Timestamp `json:"end_time"`
	Price       domain.Coins     `json:"price"`
	MintedCount uint64           `json:"minted_count,string"`
	Disabled    bool             `json:"disabled"`
}

// Minter creates tokens without the ledger's own minter check.
type Minter[E any] interface {
	MintUnchecked(deps contract.Deps, m token.MintMsg[E]) (*response.Response, error)
}

type PrimarySaleMsg struct {
	TotalSupply uint64           `json:"total_supply,string"`
	StartTime   domain.Timestamp `json:"start_time"`
	EndTime     domain.Timestamp `json:"end_time"`
	Price       domain.Coins     `json:"price"`
}

type InstantiateMsg struct {
	PrimarySale *PrimarySaleMsg `json:"primary_sale,omitempty"`
}

type ExecuteMsg[E any] struct {
	PrimarySale *PrimarySaleMsg   `json:"primary_sale,omitempty"`
	BuyItem     *token.MintMsg[E] `json:"buy_item,omitempty"`
	HaltSale    *msg.Empty        `json:"halt_sale,omitempty"`
}

type QueryMsg struct {
	PrimarySales      *msg.Empty `json:"primary_sales,omitempty"`
	ActivePrimarySale *msg.Empty `json:"active_primary_sale,omitempty"`
}

// SaleView is a stored sale with its status at query time.
type SaleView struct {
	Sale
	Status Status `json:"status"`
}

type PrimarySalesResponse struct {
	PrimarySales []SaleView `json:"primary_sales"`
}

type ActivePrimarySaleResponse struct {
	ActivePrimarySale *Sale `json:"active_primary_sale"`
}

type Sales[E any] struct {
	owner   *ownable.Ownable
	minter  Minter[E]
	history storage.Item[[]Sale]
}

func New[E any](owner *ownable.Ownable, minter Minter[E]) *Sales[E] {
	return &Sales[E]{owner: owner, minter: minter, history: storage.NewItem[[]Sale]("primary_sales")}
}

func (s *Sales[E]) Name() string { return Name }

// History returns every sale in creation order. The last one is current.
func (s *Sales[E]) History(kv store.KV) ([]Sale, error) {
	sales, _, err := s.history.May(kv)
	return sales, err
}

// Active returns the current sale while its status is Active.
func (s *Sales[E]) Active(kv store.KV, now domain.Timestamp) (*Sale, error) {
	sales, err := s.History(kv)
	if err != nil || len(sales) == 0 {
		return nil, err
	}
	cur := sales[len(sales)-1]
	if EffectiveStatus(cur, now) != StatusActive {
		return nil, nil
	}
	return &cur, nil
}

func (s *Sales[E]) Instantiate(deps contract.Deps, _ domain.Env, _ domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "sales.Sales.Instantiate"

	var m InstantiateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	sales := []Sale{}
	if m.PrimarySale != nil {
		if err := validate(*m.PrimarySale); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		sales = append(sales, newSale(*m.PrimarySale))
	}
	if err := s.history.Save(deps.Storage, sales); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().AddAttribute("action", "instantiate_sales"), nil
}

// CreatePrimarySale appends a new current sale. The caller check runs before
// the payload is looked at, so a non-owner is always rejected as
// unauthorized.
func (s *Sales[E]) CreatePrimarySale(deps contract.Deps, env domain.Env, caller domain.Addr, m PrimarySaleMsg) (*response.Response, error) {
	const op = "sales.Sales.CreatePrimarySale"

	if err := s.owner.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := validate(m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	sales, err := s.History(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if n := len(sales); n > 0 && EffectiveStatus(sales[n-1], env.Block.Time) == StatusActive {
		return nil, fmt.Errorf("%s:%w", op, ErrSaleActive)
	}
	sale := newSale(m)
	if err := s.history.Save(deps.Storage, append(sales, sale)); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "primary_sale").
		AddEvent(response.NewEvent("primary_sale").
			Add("total_supply", fmt.Sprint(sale.TotalSupply)).
			Add("start_time", fmt.Sprint(sale.StartTime.Seconds())).
			Add("end_time", fmt.Sprint(sale.EndTime.Seconds())).
			Add("price", sale.Price.String())), nil
}

// BuyItem mints the caller-described token against the current sale. The
// attached funds must equal the sale price exactly. Minting the last unit
// disables the sale in the same call.
func (s *Sales[E]) BuyItem(deps contract.Deps, env domain.Env, info domain.MessageInfo, item token.MintMsg[E]) (*response.Response, error) {
	const op = "sales.Sales.BuyItem"

	sales, err := s.History(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	n := len(sales)
	if n == 0 || EffectiveStatus(sales[n-1], env.Block.Time) != StatusActive {
		return nil, fmt.Errorf("%s:%w", op, ErrNoActiveSale)
	}
	cur := &sales[n-1]

	funds := info.Funds.Normalize()
	if !funds.Covers(cur.Price) {
		return nil, fmt.Errorf("%s: %s < %s: %w", op, funds, cur.Price, domain.ErrInsufficientFunds)
	}
	if !funds.Equal(cur.Price) {
		return nil, fmt.Errorf("%s: %s != %s: %w", op, funds, cur.Price, ErrPriceMismatch)
	}

	minted, err := s.minter.MintUnchecked(deps, item)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	cur.MintedCount++
	if cur.MintedCount >= cur.TotalSupply {
		cur.Disabled = true
	}
	if err := s.history.Save(deps.Storage, sales); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	seller, err := s.owner.Owner(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res := response.New().
		AddAttribute("action", "buy_item").
		AddAttribute("token_id", item.TokenID).
		AddAttribute("buyer", info.Sender.String()).
		AddAttribute("minted_count", fmt.Sprint(cur.MintedCount)).
		AddBankSend(seller, cur.Price)
	if cur.Disabled {
		res.AddEvent(response.NewEvent("primary_sale_exhausted").
			Add("total_supply", fmt.Sprint(cur.TotalSupply)))
	}
	return response.Merge(res, minted), nil
}

// HaltSale disables the current sale whatever its status.
func (s *Sales[E]) HaltSale(deps contract.Deps, caller domain.Addr) (*response.Response, error) {
	const op = "sales.Sales.HaltSale"

	if err := s.owner.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	sales, err := s.History(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if len(sales) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSale)
	}
	sales[len(sales)-1].Disabled = true
	if err := s.history.Save(deps.Storage, sales); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "halt_sale").
		AddEvent(response.NewEvent("primary_sale_halted")), nil
}

func (s *Sales[E]) Execute(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "sales.Sales.Execute"

	var m ExecuteMsg[E]
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.PrimarySale != nil:
		return s.CreatePrimarySale(deps, env, info.Sender, *m.PrimarySale)
	case m.BuyItem != nil:
		return s.BuyItem(deps, env, info, *m.BuyItem)
	case m.HaltSale != nil:
		return s.HaltSale(deps, info.Sender)
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

func (s *Sales[E]) Query(deps contract.Deps, env domain.Env, raw json.RawMessage) (any, error) {
	const op = "sales.Sales.Query"

	var m QueryMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.PrimarySales != nil:
		sales, err := s.History(deps.Storage)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		views := make([]SaleView, 0, len(sales))
		for _, sale := range sales {
			views = append(views, SaleView{Sale: sale, Status: EffectiveStatus(sale, env.Block.Time)})
		}
		return PrimarySalesResponse{PrimarySales: views}, nil
	case m.ActivePrimarySale != nil:
		sale, err := s.Active(deps.Storage, env.Block.Time)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return ActivePrimarySaleResponse{ActivePrimarySale: sale}, nil
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

// QueryUsesBlockTime reports whether a query's answer is derived from block
// time: sale status is recomputed on every call.
func QueryUsesBlockTime(raw json.RawMessage) bool {
	tag, _, err := msg.Tag(raw)
	return err == nil && (tag == "primary_sales" || tag == "active_primary_sale")
}

func validate(m PrimarySaleMsg) error {
	if m.TotalSupply == 0 {
		return ErrZeroSupply
	}
	if m.StartTime >= m.EndTime {
		return ErrBadWindow
	}
	return m.Price.Validate()
}

func newSale(m PrimarySaleMsg) Sale {
	return Sale{
		TotalSupply: m.TotalSupply,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Price:       m.Price.Normalize(),
	}
}

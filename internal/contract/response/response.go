// Package response models the effects a contract call hands back to the host
// and folds per-module effects into one.
package response

import (
	"encoding/json"

	"github.com/kirinyoku/seat-market/internal/domain"
)

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

func NewEvent(typ string) Event {
	return Event{Type: typ, Attributes: []Attribute{}}
}

func (e Event) Add(key, value string) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value})
	return e
}

// BankSend asks the host to move funds held by the contract.
type BankSend struct {
	ToAddress domain.Addr  `json:"to_address"`
	Amount    domain.Coins `json:"amount"`
}

// WasmExecute asks the host to call another contract.
type WasmExecute struct {
	ContractAddr domain.Addr     `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        domain.Coins    `json:"funds"`
}

// Msg is an outbound request executed by the host after the call commits.
// Exactly one field is set.
type Msg struct {
	BankSend    *BankSend    `json:"bank_send,omitempty"`
	WasmExecute *WasmExecute `json:"wasm_execute,omitempty"`
}

// Kind names the set variant.
func (m Msg) Kind() string {
	switch {
	case m.BankSend != nil:
		return "bank_send"
	case m.WasmExecute != nil:
		return "wasm_execute"
	default:
		return ""
	}
}

// Response is the partial effect record of one module call, and after Merge,
// of a whole contract call.
type Response struct {
	Messages   []Msg       `json:"messages"`
	Attributes []Attribute `json:"attributes"`
	Events     []Event     `json:"events"`
	Data       []byte      `json:"data,omitempty"`
}

func New() *Response {
	return &Response{Messages: []Msg{}, Attributes: []Attribute{}, Events: []Event{}}
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) AddEvent(e Event) *Response {
	r.Events = append(r.Events, e)
	return r
}

func (r *Response) AddMessage(m Msg) *Response {
	r.Messages = append(r.Messages, m)
	return r
}

func (r *Response) AddBankSend(to domain.Addr, amount domain.Coins) *Response {
	return r.AddMessage(Msg{BankSend: &BankSend{ToAddress: to, Amount: amount}})
}

func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}

// Merge folds parts into a copy of base in order. Attributes, events and
// messages are concatenated; Data is replaced by each part's Data, so the
// result carries only the last part's data, even when that is empty.
// Nil parts are skipped. base is never modified.
func Merge(base *Response, parts ...*Response) *Response {
	out := New()
	if base != nil {
		out.Messages = append(out.Messages, base.Messages...)
		out.Attributes = append(out.Attributes, base.Attributes...)
		out.Events = append(out.Events, base.Events...)
		out.Data = base.Data
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Messages = append(out.Messages, p.Messages...)
		out.Attributes = append(out.Attributes, p.Attributes...)
		out.Events = append(out.Events, p.Events...)
		out.Data = p.Data
	}
	return out
}

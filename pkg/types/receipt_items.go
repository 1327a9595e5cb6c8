package types

import "github.com/shopspring/decimal"

// GivenItem is a raw-metal line on a receipt: metal the client handed over,
// weighed before and after stone removal, with a purity (melting touch)
// applied to reach the pure-metal final weight.
type GivenItem struct {
	Description  string          `json:"description,omitempty"`
	GrossWeight  decimal.Decimal `json:"gross_weight"`
	StoneWeight  decimal.Decimal `json:"stone_weight"`
	MeltingTouch decimal.Decimal `json:"melting_touch"`
	StoneAmount  decimal.Decimal `json:"stone_amount"`

	// Derived at write time.
	NetWeight   decimal.Decimal `json:"net_weight"`
	FinalWeight decimal.Decimal `json:"final_weight"`
}

// ReceivedItem is a finished-goods line: metal returned to the client, with
// no gross/stone split, reduced to pure weight by its melting percent.
type ReceivedItem struct {
	Description    string          `json:"description,omitempty"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	MeltingPercent decimal.Decimal `json:"melting_percent"`

	FinalWeight decimal.Decimal `json:"final_weight"`
}

// ReceiptTotals aggregates the given-item columns of a receipt. Each field is
// summed across items independently and rounded on its own.
type ReceiptTotals struct {
	GrossWeight decimal.Decimal `json:"gross_weight"`
	StoneWeight decimal.Decimal `json:"stone_weight"`
	NetWeight   decimal.Decimal `json:"net_weight"`
	FinalWeight decimal.Decimal `json:"final_weight"`
	StoneAmount decimal.Decimal `json:"stone_amount"`
}

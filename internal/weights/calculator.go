package weights

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

const (
	weightScale = 3
	moneyScale  = 2
)

var oneHundred = decimal.NewFromInt(100)

// DeriveGivenItem validates a given item and fills its derived fields.
// Net weight is gross minus stone; final weight is net scaled by the
// melting touch.
func DeriveGivenItem(item types.GivenItem) (types.GivenItem, error) {
	if err := validateGivenItem(item); err != nil {
		return types.GivenItem{}, err
	}

	net := item.GrossWeight.Sub(item.StoneWeight).Round(weightScale)
	final := net.Mul(item.MeltingTouch).Div(oneHundred).Round(weightScale)

	item.NetWeight = net
	item.FinalWeight = final
	item.GrossWeight = item.GrossWeight.Round(weightScale)
	item.StoneWeight = item.StoneWeight.Round(weightScale)
	item.StoneAmount = item.StoneAmount.Round(moneyScale)
	return item, nil
}

// DeriveReceivedItem validates a received item and fills its final weight.
// Received items are finished goods, so there is no stone subtraction.
func DeriveReceivedItem(item types.ReceivedItem) (types.ReceivedItem, error) {
	if err := validateReceivedItem(item); err != nil {
		return types.ReceivedItem{}, err
	}

	item.ReceivedAmount = item.ReceivedAmount.Round(weightScale)
	item.FinalWeight = item.ReceivedAmount.Mul(item.MeltingPercent).Div(oneHundred).Round(weightScale)
	return item, nil
}

// Aggregate derives every item and sums the per-item results into receipt
// totals. Each total is the sum of already-rounded item fields, never a
// re-derivation from other totals, so item and aggregate rounding stay
// consistent.
func Aggregate(given []types.GivenItem, received []types.ReceivedItem) ([]types.GivenItem, []types.ReceivedItem, types.ReceiptTotals, error) {
	outGiven := make([]types.GivenItem, 0, len(given))
	outReceived := make([]types.ReceivedItem, 0, len(received))

	totals := types.ReceiptTotals{
		GrossWeight: decimal.Zero,
		StoneWeight: decimal.Zero,
		NetWeight:   decimal.Zero,
		FinalWeight: decimal.Zero,
		StoneAmount: decimal.Zero,
	}

	for i, item := range given {
		derived, err := DeriveGivenItem(item)
		if err != nil {
			return nil, nil, types.ReceiptTotals{}, itemError(err, "given_items", i)
		}
		outGiven = append(outGiven, derived)

		totals.GrossWeight = totals.GrossWeight.Add(derived.GrossWeight)
		totals.StoneWeight = totals.StoneWeight.Add(derived.StoneWeight)
		totals.NetWeight = totals.NetWeight.Add(derived.NetWeight)
		totals.FinalWeight = totals.FinalWeight.Add(derived.FinalWeight)
		totals.StoneAmount = totals.StoneAmount.Add(derived.StoneAmount)
	}

	for i, item := range received {
		derived, err := DeriveReceivedItem(item)
		if err != nil {
			return nil, nil, types.ReceiptTotals{}, itemError(err, "received_items", i)
		}
		outReceived = append(outReceived, derived)
	}

	totals.GrossWeight = totals.GrossWeight.Round(weightScale)
	totals.StoneWeight = totals.StoneWeight.Round(weightScale)
	totals.NetWeight = totals.NetWeight.Round(weightScale)
	totals.FinalWeight = totals.FinalWeight.Round(weightScale)
	totals.StoneAmount = totals.StoneAmount.Round(moneyScale)

	return outGiven, outReceived, totals, nil
}

// ReceiptDelta returns the signed ledger effect of a receipt: the final
// weight given out minus the final weight received back, rounded to the
// weight scale.
func ReceiptDelta(given []types.GivenItem, received []types.ReceivedItem) decimal.Decimal {
	delta := decimal.Zero
	for _, item := range given {
		delta = delta.Add(item.FinalWeight)
	}
	for _, item := range received {
		delta = delta.Sub(item.FinalWeight)
	}
	return delta.Round(weightScale)
}

func validateGivenItem(item types.GivenItem) error {
	if item.GrossWeight.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "gross weight cannot be negative").
			WithDetails(map[string]string{"field": "gross_weight"})
	}
	if item.StoneWeight.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "stone weight cannot be negative").
			WithDetails(map[string]string{"field": "stone_weight"})
	}
	if item.StoneAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "stone amount cannot be negative").
			WithDetails(map[string]string{"field": "stone_amount"})
	}
	if item.StoneWeight.GreaterThan(item.GrossWeight) {
		return pkgerrors.New(pkgerrors.CodeValidation, "stone weight cannot exceed gross weight").
			WithDetails(map[string]string{"field": "stone_weight"})
	}
	if err := validatePercent(item.MeltingTouch); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid melting touch").
			WithDetails(map[string]string{"field": "melting_touch"})
	}
	return nil
}

func validateReceivedItem(item types.ReceivedItem) error {
	if item.ReceivedAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "received amount cannot be negative").
			WithDetails(map[string]string{"field": "received_amount"})
	}
	if err := validatePercent(item.MeltingPercent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid melting percent").
			WithDetails(map[string]string{"field": "melting_percent"})
	}
	return nil
}

func validatePercent(value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(oneHundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 0 and 100")
	}
	return nil
}

func itemError(err error, list string, index int) error {
	appErr := pkgerrors.As(err)
	if appErr == nil {
		return err
	}
	details := map[string]any{"list": list, "index": index}
	if fields, ok := appErr.Details().(map[string]string); ok {
		for k, v := range fields {
			details[k] = v
		}
	}
	return appErr.WithDetails(details)
}

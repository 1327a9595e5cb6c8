package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karatworks/goldbooks-backend/api/responses"
	"github.com/karatworks/goldbooks-backend/api/validators"
	"github.com/karatworks/goldbooks-backend/internal/receipts"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/logger"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

// Weight fields arrive from hand-filled forms, so they decode leniently:
// unparseable numerics coerce to zero and get logged instead of failing the
// whole receipt.
type givenItemRequest struct {
	Description  string               `json:"description,omitempty"`
	GrossWeight  types.LenientDecimal `json:"gross_weight"`
	StoneWeight  types.LenientDecimal `json:"stone_weight"`
	MeltingTouch types.LenientDecimal `json:"melting_touch"`
	StoneAmount  types.LenientDecimal `json:"stone_amount"`
}

func (g givenItemRequest) toItem() types.GivenItem {
	return types.GivenItem{
		Description:  g.Description,
		GrossWeight:  g.GrossWeight.Decimal(),
		StoneWeight:  g.StoneWeight.Decimal(),
		MeltingTouch: g.MeltingTouch.Decimal(),
		StoneAmount:  g.StoneAmount.Decimal(),
	}
}

func (g givenItemRequest) coercedFields() []string {
	var fields []string
	if g.GrossWeight.Coerced() {
		fields = append(fields, "gross_weight")
	}
	if g.StoneWeight.Coerced() {
		fields = append(fields, "stone_weight")
	}
	if g.MeltingTouch.Coerced() {
		fields = append(fields, "melting_touch")
	}
	if g.StoneAmount.Coerced() {
		fields = append(fields, "stone_amount")
	}
	return fields
}

type receivedItemRequest struct {
	Description    string               `json:"description,omitempty"`
	ReceivedAmount types.LenientDecimal `json:"received_amount"`
	MeltingPercent types.LenientDecimal `json:"melting_percent"`
}

func (g receivedItemRequest) toItem() types.ReceivedItem {
	return types.ReceivedItem{
		Description:    g.Description,
		ReceivedAmount: g.ReceivedAmount.Decimal(),
		MeltingPercent: g.MeltingPercent.Decimal(),
	}
}

func (g receivedItemRequest) coercedFields() []string {
	var fields []string
	if g.ReceivedAmount.Coerced() {
		fields = append(fields, "received_amount")
	}
	if g.MeltingPercent.Coerced() {
		fields = append(fields, "melting_percent")
	}
	return fields
}

type receiptCreateRequest struct {
	ClientID      uuid.UUID             `json:"client_id" validate:"required"`
	GivenItems    []givenItemRequest    `json:"given_items,omitempty"`
	ReceivedItems []receivedItemRequest `json:"received_items,omitempty"`
	MetalType     enums.MetalType       `json:"metal_type,omitempty"`
	IssueDate     *time.Time            `json:"issue_date,omitempty"`
	DeliveryDate  *time.Time            `json:"delivery_date,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	IsCompleted   bool                  `json:"is_completed,omitempty"`
	VoucherPrefix string                `json:"voucher_prefix,omitempty"`
	VoucherID     *string               `json:"voucher_id,omitempty"`
}

func (r receiptCreateRequest) toInput() receipts.CreateReceiptInput {
	input := receipts.CreateReceiptInput{
		ClientID:      r.ClientID,
		GivenItems:    make([]types.GivenItem, 0, len(r.GivenItems)),
		ReceivedItems: make([]types.ReceivedItem, 0, len(r.ReceivedItems)),
		MetalType:     r.MetalType,
		DeliveryDate:  r.DeliveryDate,
		Notes:         r.Notes,
		IsCompleted:   r.IsCompleted,
		VoucherPrefix: r.VoucherPrefix,
		VoucherID:     r.VoucherID,
	}
	if r.IssueDate != nil {
		input.IssueDate = *r.IssueDate
	} else {
		input.IssueDate = time.Now().UTC()
	}
	for _, item := range r.GivenItems {
		input.GivenItems = append(input.GivenItems, item.toItem())
	}
	for _, item := range r.ReceivedItems {
		input.ReceivedItems = append(input.ReceivedItems, item.toItem())
	}
	return input
}

type receiptUpdateRequest struct {
	GivenItems    *[]givenItemRequest    `json:"given_items,omitempty"`
	ReceivedItems *[]receivedItemRequest `json:"received_items,omitempty"`
	MetalType     *enums.MetalType       `json:"metal_type,omitempty"`
	IssueDate     *time.Time             `json:"issue_date,omitempty"`
	DeliveryDate  *time.Time             `json:"delivery_date,omitempty"`
	Notes         *string                `json:"notes,omitempty"`
	IsCompleted   *bool                  `json:"is_completed,omitempty"`
}

func (r receiptUpdateRequest) toInput() receipts.UpdateReceiptInput {
	input := receipts.UpdateReceiptInput{
		MetalType:    r.MetalType,
		IssueDate:    r.IssueDate,
		DeliveryDate: r.DeliveryDate,
		Notes:        r.Notes,
		IsCompleted:  r.IsCompleted,
	}
	if r.GivenItems != nil {
		given := make([]types.GivenItem, 0, len(*r.GivenItems))
		for _, item := range *r.GivenItems {
			given = append(given, item.toItem())
		}
		input.GivenItems = &given
	}
	if r.ReceivedItems != nil {
		received := make([]types.ReceivedItem, 0, len(*r.ReceivedItems))
		for _, item := range *r.ReceivedItems {
			received = append(received, item.toItem())
		}
		input.ReceivedItems = &received
	}
	return input
}

func logCoercedItems(r *http.Request, logg *logger.Logger, event string, given []givenItemRequest, received []receivedItemRequest) {
	var coerced []string
	for i, item := range given {
		for _, field := range item.coercedFields() {
			coerced = append(coerced, fieldPath("given_items", i, field))
		}
	}
	for i, item := range received {
		for _, field := range item.coercedFields() {
			coerced = append(coerced, fieldPath("received_items", i, field))
		}
	}
	if len(coerced) == 0 || logg == nil {
		return
	}
	ctx := logg.WithField(r.Context(), "fields", strings.Join(coerced, ","))
	logg.Warn(ctx, event)
}

func fieldPath(list string, index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, index, field)
}

func parseReceiptID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "receiptId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt id")
	}
	return id, nil
}

// ReceiptCreate books a new receipt: voucher mint, weight totals, and the
// ledger posting happen inside the service transaction.
func ReceiptCreate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		var body receiptCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logCoercedItems(r, logg, "receipt.create.coerced_decimal", body.GivenItems, body.ReceivedItems)

		created, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toReceiptResponse(created))
	}
}

// ReceiptList returns a cursor page of receipts filtered by client, completion
// state, or metal type.
func ReceiptList(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isCompleted, err := validators.ParseQueryBool(r, "is_completed")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := receipts.ListFilter{IsCompleted: isCompleted}
		if raw := strings.TrimSpace(r.URL.Query().Get("client_id")); raw != "" {
			clientID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client id"))
				return
			}
			filter.ClientID = &clientID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("metal_type")); raw != "" {
			metal := enums.MetalType(raw)
			if !metal.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid metal type"))
				return
			}
			filter.MetalType = &metal
		}

		result, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := receiptListResponse{
			Receipts:   make([]receiptResponse, 0, len(result.Receipts)),
			NextCursor: result.NextCursor,
		}
		for i := range result.Receipts {
			out.Receipts = append(out.Receipts, toReceiptResponse(&result.Receipts[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ReceiptGet fetches a single receipt by ID.
func ReceiptGet(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		id, err := parseReceiptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toReceiptResponse(receipt))
	}
}

// ReceiptUpdate applies a partial edit; changed items re-adjust the client
// ledger by the delta difference.
func ReceiptUpdate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		id, err := parseReceiptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body receiptUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var given []givenItemRequest
		if body.GivenItems != nil {
			given = *body.GivenItems
		}
		var received []receivedItemRequest
		if body.ReceivedItems != nil {
			received = *body.ReceivedItems
		}
		logCoercedItems(r, logg, "receipt.update.coerced_decimal", given, received)

		updated, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toReceiptResponse(updated))
	}
}

// ReceiptDelete voids a receipt and reverses its ledger delta.
func ReceiptDelete(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		id, err := parseReceiptID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

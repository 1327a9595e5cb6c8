package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karatworks/goldbooks-backend/api/responses"
	"github.com/karatworks/goldbooks-backend/api/validators"
	"github.com/karatworks/goldbooks-backend/internal/clients"
	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/logger"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

type clientCreateRequest struct {
	Name           string                `json:"name" validate:"required,min=1"`
	ShopName       *string               `json:"shop_name,omitempty"`
	Phone          *string               `json:"phone,omitempty"`
	Address        *string               `json:"address,omitempty"`
	Email          *string               `json:"email,omitempty" validate:"omitempty,email"`
	MetalType      enums.MetalType       `json:"metal_type,omitempty"`
	Tags           []string              `json:"tags,omitempty"`
	OpeningBalance *types.LenientDecimal `json:"opening_balance,omitempty"`
}

func (r clientCreateRequest) toInput() clients.CreateClientInput {
	input := clients.CreateClientInput{
		Name:      r.Name,
		ShopName:  r.ShopName,
		Phone:     r.Phone,
		Address:   r.Address,
		Email:     r.Email,
		MetalType: r.MetalType,
		Tags:      r.Tags,
	}
	if r.OpeningBalance != nil {
		opening := r.OpeningBalance.Decimal()
		input.OpeningBalance = &opening
	}
	return input
}

type clientUpdateRequest struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	ShopName  *string          `json:"shop_name,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
	Address   *string          `json:"address,omitempty"`
	Email     *string          `json:"email,omitempty" validate:"omitempty,email"`
	MetalType *enums.MetalType `json:"metal_type,omitempty"`
	Tags      *[]string        `json:"tags,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

func (r clientUpdateRequest) toInput() clients.UpdateClientInput {
	return clients.UpdateClientInput{
		Name:      r.Name,
		ShopName:  r.ShopName,
		Phone:     r.Phone,
		Address:   r.Address,
		Email:     r.Email,
		MetalType: r.MetalType,
		Tags:      r.Tags,
		IsActive:  r.IsActive,
	}
}

func parseClientID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "clientId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client id")
	}
	return id, nil
}

// ClientCreate registers a new client account, optionally seeding its opening
// balance through the ledger.
func ClientCreate(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}

		var body clientCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.OpeningBalance != nil && body.OpeningBalance.Coerced() && logg != nil {
			ctx := logg.WithField(r.Context(), "field", "opening_balance")
			logg.Warn(ctx, "client.create.coerced_decimal")
		}

		created, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toClientResponse(created))
	}
}

// ClientList returns a cursor page of clients, filterable by search text,
// metal type, and active flag.
func ClientList(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isActive, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := clients.ListFilter{
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
			IsActive: isActive,
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

		out := clientListResponse{
			Clients:    make([]clientResponse, 0, len(result.Clients)),
			NextCursor: result.NextCursor,
		}
		for i := range result.Clients {
			out.Clients = append(out.Clients, toClientResponse(&result.Clients[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ClientGet fetches a single client by ID.
func ClientGet(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}

		id, err := parseClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		client, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toClientResponse(client))
	}
}

// ClientUpdate applies a partial edit. The balance field is not editable here;
// only receipts and adjustments move it.
func ClientUpdate(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}

		id, err := parseClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clientUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toClientResponse(updated))
	}
}

// ClientDelete removes a client that has no receipts and a zero balance.
func ClientDelete(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client service unavailable"))
			return
		}

		id, err := parseClientID(r)
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

// ClientStatement returns the client's balance history newest first, with the
// stored running balance alongside each entry.
func ClientStatement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := parseClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Statement(r.Context(), id, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := statementResponse{
			Client:     toClientResponse(result.Client),
			Entries:    make([]balanceEntryResponse, 0, len(result.Entries)),
			NextCursor: result.NextCursor,
		}
		for _, entry := range result.Entries {
			out.Entries = append(out.Entries, toBalanceEntryResponse(entry))
		}
		responses.WriteSuccess(w, out)
	}
}

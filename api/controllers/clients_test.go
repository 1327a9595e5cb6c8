package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/internal/clients"
	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
)

type stubClientService struct {
	lastCreate clients.CreateClientInput
	lastUpdate clients.UpdateClientInput
	lastFilter clients.ListFilter
	lastParams pagination.Params
	lastID     uuid.UUID

	client *models.Client
	list   *clients.ListResult
	err    error
}

func (s *stubClientService) Create(ctx context.Context, input clients.CreateClientInput) (*models.Client, error) {
	s.lastCreate = input
	return s.client, s.err
}

func (s *stubClientService) Update(ctx context.Context, clientID uuid.UUID, input clients.UpdateClientInput) (*models.Client, error) {
	s.lastID = clientID
	s.lastUpdate = input
	return s.client, s.err
}

func (s *stubClientService) Delete(ctx context.Context, clientID uuid.UUID) error {
	s.lastID = clientID
	return s.err
}

func (s *stubClientService) Get(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	s.lastID = clientID
	return s.client, s.err
}

func (s *stubClientService) List(ctx context.Context, filter clients.ListFilter, params pagination.Params) (*clients.ListResult, error) {
	s.lastFilter = filter
	s.lastParams = params
	return s.list, s.err
}

type stubLedgerService struct {
	lastClientID uuid.UUID
	lastParams   pagination.Params
	statement    *ledger.StatementResult
	err          error
}

func (s *stubLedgerService) WithTx(tx *gorm.DB) ledger.Service { return s }

func (s *stubLedgerService) ApplyDelta(ctx context.Context, input ledger.ApplyDeltaInput) (*ledger.ApplyResult, error) {
	return nil, s.err
}

func (s *stubLedgerService) ReverseDelta(ctx context.Context, input ledger.ApplyDeltaInput) (*ledger.ApplyResult, error) {
	return nil, s.err
}

func (s *stubLedgerService) GetBalance(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *stubLedgerService) Statement(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*ledger.StatementResult, error) {
	s.lastClientID = clientID
	s.lastParams = params
	return s.statement, s.err
}

func testClient() *models.Client {
	return &models.Client{
		ID:        uuid.New(),
		Name:      "Meera Jewellers",
		MetalType: enums.MetalTypeGold,
		IsActive:  true,
		Balance:   decimal.RequireFromString("12.500"),
	}
}

func requestWithClientID(method, target string, body *bytes.Buffer, clientID string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("clientId", clientID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestClientCreate(t *testing.T) {
	svc := &stubClientService{client: testClient()}
	handler := ClientCreate(svc, nil)

	body := `{"name":"Meera Jewellers","metal_type":"gold","opening_balance":"12.5","tags":["wholesale"]}`
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastCreate.Name != "Meera Jewellers" {
		t.Fatalf("expected name forwarded, got %q", svc.lastCreate.Name)
	}
	if svc.lastCreate.OpeningBalance == nil || !svc.lastCreate.OpeningBalance.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected opening balance 12.5, got %v", svc.lastCreate.OpeningBalance)
	}

	var envelope struct {
		Data clientResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != "Meera Jewellers" {
		t.Fatalf("unexpected response name %q", envelope.Data.Name)
	}
}

func TestClientCreateRejectsUnknownField(t *testing.T) {
	handler := ClientCreate(&stubClientService{client: testClient()}, nil)

	body := `{"name":"Meera Jewellers","balance":"999"}`
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown field to be rejected, got %d", rec.Code)
	}
}

func TestClientListFilters(t *testing.T) {
	svc := &stubClientService{list: &clients.ListResult{Clients: []models.Client{*testClient()}, NextCursor: "cursor-1"}}
	handler := ClientList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/clients?limit=10&search=meera&metal_type=gold&is_active=true", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastParams.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", svc.lastParams.Limit)
	}
	if svc.lastFilter.Search != "meera" {
		t.Fatalf("expected search filter, got %q", svc.lastFilter.Search)
	}
	if svc.lastFilter.MetalType == nil || *svc.lastFilter.MetalType != enums.MetalTypeGold {
		t.Fatalf("expected metal filter gold, got %v", svc.lastFilter.MetalType)
	}
	if svc.lastFilter.IsActive == nil || !*svc.lastFilter.IsActive {
		t.Fatalf("expected is_active filter true, got %v", svc.lastFilter.IsActive)
	}

	var envelope struct {
		Data clientListResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.NextCursor != "cursor-1" {
		t.Fatalf("expected cursor passthrough, got %q", envelope.Data.NextCursor)
	}
	if len(envelope.Data.Clients) != 1 {
		t.Fatalf("expected one client, got %d", len(envelope.Data.Clients))
	}
}

func TestClientListRejectsBadMetalType(t *testing.T) {
	handler := ClientList(&stubClientService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/clients?metal_type=plutonium", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestClientGetInvalidID(t *testing.T) {
	handler := ClientGet(&stubClientService{}, nil)

	req := requestWithClientID(http.MethodGet, "/clients/nope", nil, "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestClientUpdateForwardsPartialEdit(t *testing.T) {
	client := testClient()
	svc := &stubClientService{client: client}
	handler := ClientUpdate(svc, nil)

	body := bytes.NewBufferString(`{"shop_name":"MJ & Sons","is_active":false}`)
	req := requestWithClientID(http.MethodPut, "/clients/"+client.ID.String(), body, client.ID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastID != client.ID {
		t.Fatalf("expected id %s, got %s", client.ID, svc.lastID)
	}
	if svc.lastUpdate.ShopName == nil || *svc.lastUpdate.ShopName != "MJ & Sons" {
		t.Fatalf("expected shop name forwarded, got %v", svc.lastUpdate.ShopName)
	}
	if svc.lastUpdate.IsActive == nil || *svc.lastUpdate.IsActive {
		t.Fatalf("expected is_active false forwarded, got %v", svc.lastUpdate.IsActive)
	}
	if svc.lastUpdate.Name != nil {
		t.Fatalf("expected untouched name to stay nil, got %v", svc.lastUpdate.Name)
	}
}

func TestClientDeleteConflictPassthrough(t *testing.T) {
	client := testClient()
	svc := &stubClientService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "client has receipts")}
	handler := ClientDelete(svc, nil)

	req := requestWithClientID(http.MethodDelete, "/clients/"+client.ID.String(), nil, client.ID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestClientStatement(t *testing.T) {
	client := testClient()
	entry := models.BalanceEntry{
		ID:           uuid.New(),
		ClientID:     client.ID,
		Delta:        decimal.RequireFromString("3.250"),
		BalanceAfter: decimal.RequireFromString("12.500"),
		Reason:       enums.BalanceEntryReasonReceiptCreated,
	}
	svc := &stubLedgerService{statement: &ledger.StatementResult{
		Client:     client,
		Entries:    []models.BalanceEntry{entry},
		NextCursor: "more",
	}}
	handler := ClientStatement(svc, nil)

	req := requestWithClientID(http.MethodGet, "/clients/"+client.ID.String()+"/statement?limit=50", nil, client.ID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastClientID != client.ID {
		t.Fatalf("expected client id forwarded, got %s", svc.lastClientID)
	}
	if svc.lastParams.Limit != 50 {
		t.Fatalf("expected limit 50, got %d", svc.lastParams.Limit)
	}

	var envelope struct {
		Data statementResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Client.ID != client.ID {
		t.Fatalf("expected client echoed, got %s", envelope.Data.Client.ID)
	}
	if len(envelope.Data.Entries) != 1 || !envelope.Data.Entries[0].Delta.Equal(entry.Delta) {
		t.Fatalf("unexpected entries %+v", envelope.Data.Entries)
	}
	if envelope.Data.NextCursor != "more" {
		t.Fatalf("expected cursor passthrough, got %q", envelope.Data.NextCursor)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/internal/vouchers"
	"github.com/karatworks/goldbooks-backend/pkg/config"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
)

type stubVoucherService struct {
	lastPrefix string
	resp       string
	err        error
}

func (s *stubVoucherService) WithTx(tx *gorm.DB) vouchers.Service { return s }

func (s *stubVoucherService) NextVoucherID(ctx context.Context, prefix string) (string, error) {
	s.lastPrefix = prefix
	return s.resp, s.err
}

func TestVoucherNext(t *testing.T) {
	svc := &stubVoucherService{resp: "RJ-2608-0007"}
	handler := VoucherNext(svc, config.VoucherConfig{DefaultPrefix: "GB"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/vouchers/next?prefix=RJ-2608", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastPrefix != "RJ-2608" {
		t.Fatalf("expected prefix forwarded, got %q", svc.lastPrefix)
	}

	var envelope struct {
		Data voucherNextResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.VoucherID != "RJ-2608-0007" {
		t.Fatalf("unexpected voucher id %q", envelope.Data.VoucherID)
	}
}

func TestVoucherNextDefaultsPrefix(t *testing.T) {
	svc := &stubVoucherService{resp: "GB-2608-0001"}
	handler := VoucherNext(svc, config.VoucherConfig{DefaultPrefix: "GB"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/vouchers/next", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	want := "GB-" + time.Now().UTC().Format("0601")
	if !strings.HasPrefix(svc.lastPrefix, "GB-") || svc.lastPrefix != want {
		t.Fatalf("expected defaulted prefix %q, got %q", want, svc.lastPrefix)
	}
}

func TestVoucherNextMintFailure(t *testing.T) {
	svc := &stubVoucherService{err: pkgerrors.New(pkgerrors.CodeDependency, "minting voucher id")}
	handler := VoucherNext(svc, config.VoucherConfig{DefaultPrefix: "GB"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/vouchers/next?prefix=RJ", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code < http.StatusInternalServerError {
		t.Fatalf("expected dependency failure status, got %d", rec.Code)
	}
}

package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/karatworks/goldbooks-backend/api/responses"
	"github.com/karatworks/goldbooks-backend/internal/vouchers"
	"github.com/karatworks/goldbooks-backend/pkg/config"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/logger"
)

type voucherNextResponse struct {
	VoucherID string `json:"voucher_id"`
}

// VoucherNext mints and returns the next voucher number for the prefix. Every
// call consumes a number; there is no peek, so an abandoned form burns its
// voucher rather than risking a duplicate. An omitted prefix falls back to the
// configured default plus the current year-month, the same shape receipts use.
func VoucherNext(svc vouchers.Service, cfg config.VoucherConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))
		if prefix == "" {
			prefix = fmt.Sprintf("%s-%s", cfg.DefaultPrefix, time.Now().UTC().Format("0601"))
		}

		voucherID, err := svc.NextVoucherID(r.Context(), prefix)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, voucherNextResponse{VoucherID: voucherID})
	}
}

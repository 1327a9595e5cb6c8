package vouchers

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
)

const defaultPadWidth = 4

// Service mints unique, sequential voucher IDs scoped by prefix. Prefix
// policy (static shop code, year+month, ...) belongs to the caller; the
// sequencer only guarantees the numbering.
type Service interface {
	WithTx(tx *gorm.DB) Service
	NextVoucherID(ctx context.Context, prefix string) (string, error)
}

type service struct {
	repo     Repository
	padWidth int
}

// NewService wires a voucher sequencer with the provided repository.
func NewService(repo Repository, padWidth int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if padWidth <= 0 {
		padWidth = defaultPadWidth
	}
	return &service{repo: repo, padWidth: padWidth}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), padWidth: s.padWidth}
}

func (s *service) NextVoucherID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "voucher prefix is required")
	}
	if strings.HasSuffix(prefix, "-") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "voucher prefix cannot end with a separator")
	}

	value, err := s.repo.NextValue(ctx, prefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "minting voucher id")
	}
	return fmt.Sprintf("%s-%0*d", prefix, s.padWidth, value), nil
}

package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// CouponUsecase はクーポンコードの検証と、管理者のプロモーションCRUD。
// 検証は副作用なし（使用回数は数えない）。
type CouponUsecase struct {
	promoRepo repo.PromotionRepository
	clock     Clock
}

func NewCouponUsecase(promoRepo repo.PromotionRepository, clock Clock) *CouponUsecase {
	return &CouponUsecase{promoRepo: promoRepo, clock: clock}
}

type CouponResult struct {
	Code            string `json:"code"`
	Title           string `json:"title"`
	DiscountPercent int64  `json:"discount_percent"`
}

// Validate はコードを大文字小文字を区別せず検索し、
// 現在時刻が有効期間内のときだけ割引率を返す。
func (u *CouponUsecase) Validate(ctx context.Context, code string) (CouponResult, error) {
	normalized := model.NormalizeCouponCode(code)
	if normalized == "" {
		return CouponResult{}, NewHTTPError(http.StatusBadRequest, "coupon code is required")
	}

	p, err := u.promoRepo.FindByCode(ctx, normalized)
	if errors.Is(err, repo.ErrNotFound) {
		return CouponResult{}, NewHTTPError(http.StatusBadRequest, "invalid coupon code")
	}
	if err != nil {
		return CouponResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !p.IsActiveAt(u.clock.Now()) {
		return CouponResult{}, NewHTTPError(http.StatusBadRequest, "coupon is not active")
	}

	return CouponResult{
		Code:            p.Code,
		Title:           p.Title,
		DiscountPercent: p.DiscountPercent,
	}, nil
}

type PromotionCreateInput struct {
	Code            string
	Title           string
	DiscountPercent int64
	ProductID       *int64
	ValidFrom       time.Time
	ValidTo         time.Time
}

func (u *CouponUsecase) List(ctx context.Context, actor Actor) ([]model.Promotion, error) {
	if actor.Role != model.RoleAdmin {
		return nil, NewHTTPError(http.StatusForbidden, "admin only")
	}

	items, err := u.promoRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CouponUsecase) Create(ctx context.Context, actor Actor, in PromotionCreateInput) (model.Promotion, error) {
	if actor.Role != model.RoleAdmin {
		return model.Promotion{}, NewHTTPError(http.StatusForbidden, "admin only")
	}

	code := model.NormalizeCouponCode(in.Code)
	if code == "" {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "coupon code is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "discount_percent must be between 0 and 100")
	}
	if in.ValidTo.Before(in.ValidFrom) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "valid_to must not be before valid_from")
	}

	now := u.clock.Now()
	created, err := u.promoRepo.Create(ctx, model.Promotion{
		Code:            code,
		Title:           strings.TrimSpace(in.Title),
		DiscountPercent: in.DiscountPercent,
		ProductID:       in.ProductID,
		ValidFrom:       in.ValidFrom,
		ValidTo:         in.ValidTo,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Promotion{}, NewHTTPError(http.StatusConflict, "coupon code already exists")
	}
	if err != nil {
		return model.Promotion{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return created, nil
}

func (u *CouponUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if actor.Role != model.RoleAdmin {
		return NewHTTPError(http.StatusForbidden, "admin only")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := u.promoRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type BrandUsecase struct {
	brands repo.BrandRepository
	audits repo.AuditLogRepository
	log    *zap.Logger
}

// DI
func NewBrandUsecase(brands repo.BrandRepository, audits repo.AuditLogRepository, log *zap.Logger) *BrandUsecase {
	return &BrandUsecase{brands: brands, audits: audits, log: log}
}

type BrandInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    *bool
}

func (u *BrandUsecase) List(ctx context.Context) ([]model.Brand, error) {
	brands, err := u.brands.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return brands, nil
}

func (u *BrandUsecase) Get(ctx context.Context, id int64) (model.Brand, error) {
	b, err := u.brands.FindByID(ctx, id)
	if err != nil {
		return model.Brand{}, catalogError(err, "")
	}
	return b, nil
}

func (u *BrandUsecase) Create(ctx context.Context, adminUserID int64, in BrandInput) (model.Brand, error) {
	ve := &ValidationError{}
	name, slug := normalizeNameSlug(ve, in.Name, in.Slug)
	if err := ve.OrNil(); err != nil {
		return model.Brand{}, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	b, err := u.brands.Create(ctx, model.Brand{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		IsActive:    active,
	})
	if err != nil {
		return model.Brand{}, catalogError(err, "brand slug already exists")
	}

	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionCreate, model.AuditResourceBrand, b.ID, nil, b); err != nil {
		return model.Brand{}, internalError(err)
	}
	u.log.Info("brand created", zap.Int64("brand_id", b.ID), zap.Int64("admin_user_id", adminUserID))
	return b, nil
}

func (u *BrandUsecase) Update(ctx context.Context, adminUserID int64, id int64, in BrandInput) (model.Brand, error) {
	before, err := u.brands.FindByID(ctx, id)
	if err != nil {
		return model.Brand{}, catalogError(err, "")
	}

	ve := &ValidationError{}
	name, slug := normalizeNameSlug(ve, in.Name, in.Slug)
	if err := ve.OrNil(); err != nil {
		return model.Brand{}, err
	}

	after := before
	after.Name = name
	after.Slug = slug
	after.Description = in.Description
	if in.IsActive != nil {
		after.IsActive = *in.IsActive
	}

	if err := u.brands.Update(ctx, after); err != nil {
		return model.Brand{}, catalogError(err, "brand slug already exists")
	}
	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionUpdate, model.AuditResourceBrand, id, before, after); err != nil {
		return model.Brand{}, internalError(err)
	}
	return after, nil
}

func (u *BrandUsecase) Delete(ctx context.Context, adminUserID int64, id int64) error {
	before, err := u.brands.FindByID(ctx, id)
	if err != nil {
		return catalogError(err, "")
	}
	if err := u.brands.SoftDelete(ctx, id); err != nil {
		return catalogError(err, "")
	}
	if err := recordAudit(ctx, u.audits, adminUserID, model.AuditActionDelete, model.AuditResourceBrand, id, before, nil); err != nil {
		return internalError(err)
	}
	return nil
}

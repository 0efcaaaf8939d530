package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	brandRepo     repo.BrandRepository
	categoryRepo  repo.CategoryRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
	log           *zap.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	brandRepo repo.BrandRepository,
	categoryRepo repo.CategoryRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		brandRepo:     brandRepo,
		categoryRepo:  categoryRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
		log:           log,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	BrandID    *int64
	CategoryID *int64
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		BrandID:    in.BrandID,
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 公開中の商品のみ。バリエーションも公開中のものだけ返す。
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindWithVariants(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}
	if !p.IsActive {
		return model.Product{}, ErrProductNotFound
	}

	active := make([]model.ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	p.Variants = active
	return p, nil
}

type ProductInput struct {
	BrandID     *int64
	CategoryID  *int64
	Name        string
	Slug        string
	Description string
	Price       int64
	Stock       int64
	IsActive    bool
}

type VariantInput struct {
	SKU      string
	Name     string
	Price    int64
	Stock    int64
	IsActive *bool
}

// 在庫更新の結果
type InventoryResult struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
}

// 管理画面用（非公開も含めて取得）
func (u *ProductUsecase) AdminGetProduct(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.productRepo.FindWithVariants(ctx, productID)
	if err != nil {
		return model.Product{}, catalogError(err, "")
	}
	return p, nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, ErrUnauthorized
	}

	p, err := u.validateProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return model.Product{}, catalogError(err, "product slug already exists")
	}

	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreate, model.AuditResourceProduct, created.ID, nil, created); err != nil {
		return model.Product{}, internalError(err)
	}
	u.log.Info("product created", zap.Int64("product_id", created.ID), zap.Int64("admin_user_id", adminUserID))
	return created, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, ErrUnauthorized
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, catalogError(err, "")
	}

	after, err := u.validateProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}
	after.ID = before.ID
	after.CreatedAt = before.CreatedAt

	if err := u.productRepo.Update(ctx, after); err != nil {
		return model.Product{}, catalogError(err, "product slug already exists")
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdate, model.AuditResourceProduct, productID, before, after); err != nil {
		return model.Product{}, internalError(err)
	}
	return after, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return catalogError(err, "")
	}
	if err := u.productRepo.SoftDelete(ctx, productID); err != nil {
		return catalogError(err, "")
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDelete, model.AuditResourceProduct, productID, before, nil); err != nil {
		return internalError(err)
	}
	return nil
}

func (u *ProductUsecase) AdminCreateVariant(ctx context.Context, adminUserID int64, productID int64, in VariantInput) (model.ProductVariant, error) {
	if adminUserID <= 0 {
		return model.ProductVariant{}, ErrUnauthorized
	}
	if _, err := u.productRepo.FindByID(ctx, productID); err != nil {
		return model.ProductVariant{}, catalogError(err, "")
	}

	v, err := validateVariant(in, true)
	if err != nil {
		return model.ProductVariant{}, err
	}
	v.ProductID = productID

	created, err := u.productRepo.CreateVariant(ctx, v)
	if err != nil {
		return model.ProductVariant{}, catalogError(err, "sku already exists")
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreate, model.AuditResourceVariant, created.ID, nil, created); err != nil {
		return model.ProductVariant{}, internalError(err)
	}
	return created, nil
}

func (u *ProductUsecase) AdminUpdateVariant(ctx context.Context, adminUserID int64, productID int64, variantID int64, in VariantInput) (model.ProductVariant, error) {
	if adminUserID <= 0 {
		return model.ProductVariant{}, ErrUnauthorized
	}

	before, err := u.findVariantOf(ctx, productID, variantID)
	if err != nil {
		return model.ProductVariant{}, err
	}

	after, err := validateVariant(in, before.IsActive)
	if err != nil {
		return model.ProductVariant{}, err
	}
	after.ID = before.ID
	after.ProductID = before.ProductID
	after.CreatedAt = before.CreatedAt

	if err := u.productRepo.UpdateVariant(ctx, after); err != nil {
		return model.ProductVariant{}, catalogError(err, "sku already exists")
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdate, model.AuditResourceVariant, variantID, before, after); err != nil {
		return model.ProductVariant{}, internalError(err)
	}
	return after, nil
}

func (u *ProductUsecase) AdminDeleteVariant(ctx context.Context, adminUserID int64, productID int64, variantID int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}

	before, err := u.findVariantOf(ctx, productID, variantID)
	if err != nil {
		return err
	}
	if err := u.productRepo.DeleteVariant(ctx, variantID); err != nil {
		return catalogError(err, "")
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDelete, model.AuditResourceVariant, variantID, before, nil); err != nil {
		return internalError(err)
	}
	return nil
}

// 在庫を「現在値」で更新（調整履歴と監査ログも残す）
func (u *ProductUsecase) AdminSetStock(ctx context.Context, adminUserID int64, productID int64, variantID *int64, newStock int64, reason string) (InventoryResult, error) {
	if adminUserID <= 0 {
		return InventoryResult{}, ErrUnauthorized
	}

	ve := &ValidationError{}
	if newStock < 0 {
		ve.Add("stock", "stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		ve.Add("reason", "reason is required")
	} else if utf8.RuneCountInString(reason) > 255 {
		ve.Add("reason", "reason must be at most 255 characters")
	}
	if err := ve.OrNil(); err != nil {
		return InventoryResult{}, err
	}

	before, err := u.inventoryRepo.SetStockWithAdjustment(ctx, adminUserID, productID, variantID, newStock, reason)
	if err != nil {
		return InventoryResult{}, catalogError(err, "")
	}

	resource := model.AuditResourceProduct
	resourceID := productID
	if variantID != nil {
		resource = model.AuditResourceVariant
		resourceID = *variantID
	}
	if err := recordAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdateStock, resource, resourceID,
		map[string]int64{"stock": before},
		map[string]int64{"stock": newStock},
	); err != nil {
		return InventoryResult{}, internalError(err)
	}

	u.log.Info("stock updated",
		zap.Int64("product_id", productID),
		zap.Int64p("variant_id", variantID),
		zap.Int64("before", before),
		zap.Int64("after", newStock),
	)
	return InventoryResult{ProductID: productID, VariantID: variantID, Before: before, After: newStock}, nil
}

func (u *ProductUsecase) ListAuditLogs(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := u.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err)
	}
	return logs, nil
}

func (u *ProductUsecase) validateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	ve := &ValidationError{}
	name, slug := normalizeNameSlug(ve, in.Name, in.Slug)
	if in.Price < 0 {
		ve.Add("price", "price must be >= 0")
	}
	if in.Stock < 0 {
		ve.Add("stock", "stock must be >= 0")
	}

	if in.BrandID != nil {
		if _, err := u.brandRepo.FindByID(ctx, *in.BrandID); errors.Is(err, repo.ErrNotFound) {
			ve.Add("brand_id", "brand does not exist")
		} else if err != nil {
			return model.Product{}, internalError(err)
		}
	}
	if in.CategoryID != nil {
		if _, err := u.categoryRepo.FindByID(ctx, *in.CategoryID); errors.Is(err, repo.ErrNotFound) {
			ve.Add("category_id", "category does not exist")
		} else if err != nil {
			return model.Product{}, internalError(err)
		}
	}
	if err := ve.OrNil(); err != nil {
		return model.Product{}, err
	}

	return model.Product{
		BrandID:     in.BrandID,
		CategoryID:  in.CategoryID,
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    in.IsActive,
	}, nil
}

func validateVariant(in VariantInput, defaultActive bool) (model.ProductVariant, error) {
	ve := &ValidationError{}
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" {
		ve.Add("sku", "sku is required")
	} else if len(sku) > 64 {
		ve.Add("sku", "sku must be at most 64 characters")
	}
	if name == "" {
		ve.Add("name", "name is required")
	}
	if in.Price < 0 {
		ve.Add("price", "price must be >= 0")
	}
	if in.Stock < 0 {
		ve.Add("stock", "stock must be >= 0")
	}
	if err := ve.OrNil(); err != nil {
		return model.ProductVariant{}, err
	}

	active := defaultActive
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return model.ProductVariant{
		SKU:      sku,
		Name:     name,
		Price:    in.Price,
		Stock:    in.Stock,
		IsActive: active,
	}, nil
}

// 指定商品のバリエーションか確認して取得
func (u *ProductUsecase) findVariantOf(ctx context.Context, productID int64, variantID int64) (model.ProductVariant, error) {
	v, err := u.productRepo.FindVariantByID(ctx, variantID)
	if err != nil {
		return model.ProductVariant{}, catalogError(err, "")
	}
	if v.ProductID != productID {
		return model.ProductVariant{}, ErrNotFound
	}
	return v, nil
}

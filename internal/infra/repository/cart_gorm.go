package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

var errInvalidScope = errors.New("invalid cart scope")

// スコープ（user or session）のACTIVEカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateActive(ctx context.Context, scope model.CartScope) (model.Cart, error) {
	if !scope.Valid() {
		return model.Cart{}, errInvalidScope
	}

	var cart model.Cart

	//トランザクションで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := whereActiveScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), scope).
			Order("id desc").
			First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る。同時作成はunique indexで弾かれるのでDO NOTHING→読み直し
		newCart := newActiveCart(scope)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&newCart)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return whereActiveScope(tx, scope).Order("id desc").First(&cart).Error
		}

		cart = newCart
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}

	//明細もまとめて返す
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("id asc").
		Find(&cart.Items).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func newActiveCart(scope model.CartScope) model.Cart {
	now := time.Now()
	cart := model.Cart{
		Status:    model.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if scope.Authenticated() {
		userID := scope.UserID
		cart.UserID = &userID
	} else {
		sessionID := scope.SessionID
		cart.SessionID = &sessionID
	}
	return cart
}

func whereActiveScope(tx *gorm.DB, scope model.CartScope) *gorm.DB {
	if scope.Authenticated() {
		return tx.Where("user_id = ? AND status = ?", scope.UserID, model.CartStatusActive)
	}
	return tx.Where("session_id = ? AND status = ?", scope.SessionID, model.CartStatusActive)
}

// ユーザーのACTIVEカートを取得
func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return r.findActive(ctx, model.UserScope(userID))
}

// ゲストセッションのACTIVEカートを取得
func (r *CartGormRepository) FindActiveBySessionID(ctx context.Context, sessionID string) (model.Cart, error) {
	if sessionID == "" {
		return model.Cart{}, repo.ErrNotFound
	}
	return r.findActive(ctx, model.GuestScope(sessionID))
}

func (r *CartGormRepository) findActive(ctx context.Context, scope model.CartScope) (model.Cart, error) {
	var cart model.Cart

	err := whereActiveScope(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), scope).
		Order("id desc").
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// ゲストカートをユーザーのカートにする
func (r *CartGormRepository) Reassign(ctx context.Context, cartID int64, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"session_id": nil,
			"version":    gorm.Expr("version + ?", 1),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// versionを+1（updated_atも更新）
func (r *CartGormRepository) BumpVersion(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumns(map[string]interface{}{
			"version":    gorm.Expr("version + ?", 1),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrNotFound
			}
			return err
		}

		//cart_itemsを全削除
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		return tx.Model(&model.Cart{}).Where("id = ?", cartID).
			UpdateColumn("version", gorm.Expr("version + ?", 1)).Error
	})
}

// カートごと削除（マージ済みのゲストカートなど）
func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.Cart{}, cartID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

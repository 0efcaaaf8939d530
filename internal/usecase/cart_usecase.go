package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/infra/cache"
	"storefront/internal/policy"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	msgUnavailable = "This product is no longer available."
	msgOutOfStock  = "This item is out of stock."
)

// カートの上限と金額表示
type CartSettings struct {
	MaxQuantityPerItem int64
	MaxItems           int64
	CurrencySymbol     string
	CurrencyExponent   int32
}

// CartUsecase は /cart の業務ロジック。
// スコープ（ユーザー or ゲストセッション）は呼び出し側から明示的に受け取る。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	txm          repo.TransactionManager
	summaries    cache.SummaryCache
	settings     CartSettings
	log          *zap.Logger
	group        singleflight.Group
}

// DI
func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	txm repo.TransactionManager,
	summaries cache.SummaryCache,
	settings CartSettings,
	log *zap.Logger,
) *CartUsecase {
	if summaries == nil {
		summaries = cache.NopSummaryCache{}
	}
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		txm:          txm,
		summaries:    summaries,
		settings:     settings,
		log:          log,
	}
}

type AddCartInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type CartItemView struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
	LineTotal   int64  `json:"line_total"`
	Available   bool   `json:"available"`
}

type CartView struct {
	ID      int64             `json:"id"`
	Items   []CartItemView    `json:"items"`
	Summary model.CartSummary `json:"summary"`
}

// スコープのACTIVEカートを返す（無ければ作る）。同じリクエスト内ではmemoを使う。
func (u *CartUsecase) GetOrCreateCart(ctx context.Context, scope model.CartScope) (model.Cart, error) {
	if !scope.Valid() {
		return model.Cart{}, ErrUnauthorized
	}

	memo := memoFrom(ctx)
	if cart, ok := memo.get(scope); ok {
		return cart, nil
	}

	cart, err := u.cartRepo.GetOrCreateActive(ctx, scope)
	if err != nil {
		return model.Cart{}, internalError(err)
	}

	memo.put(scope, cart)
	return cart, nil
}

// 表示用のカート（商品名・追加時点の価格・小計・サマリー）
func (u *CartUsecase) GetCart(ctx context.Context, scope model.CartScope) (CartView, error) {
	cart, err := u.GetOrCreateCart(ctx, scope)
	if err != nil {
		return CartView{}, err
	}

	products, variants, err := u.loadCatalog(ctx, cart.Items)
	if err != nil {
		return CartView{}, internalError(err)
	}

	views := make([]CartItemView, 0, len(cart.Items))
	for _, it := range cart.Items {
		v := CartItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		}

		p, ok := products[it.ProductID]
		if ok {
			v.Name = p.Name
			v.Available = p.IsActive
		}
		if it.VariantID != nil {
			pv, ok := variants[*it.VariantID]
			if ok {
				v.VariantName = pv.Name
				v.Available = v.Available && pv.IsActive
			} else {
				v.Available = false
			}
		}
		views = append(views, v)
	}

	summary, err := u.GetCartSummary(ctx, scope)
	if err != nil {
		return CartView{}, err
	}

	return CartView{ID: cart.ID, Items: views, Summary: summary}, nil
}

// カートに追加。同一(商品, バリエーション)は数量を加算する。
// 在庫はここでは見ない（ValidateCartで確認する）。
func (u *CartUsecase) AddToCart(ctx context.Context, scope model.CartScope, in AddCartInput) (model.CartItem, error) {
	ve := &ValidationError{}
	if in.ProductID <= 0 {
		ve.Add("product_id", "product_id is required")
	}
	if in.VariantID != nil && *in.VariantID <= 0 {
		ve.Add("variant_id", "variant_id must be positive")
	}
	if err := ve.OrNil(); err != nil {
		return model.CartItem{}, err
	}
	if in.Quantity < 1 {
		return model.CartItem{}, ErrInvalidQuantity
	}
	if in.Quantity > u.settings.MaxQuantityPerItem {
		return model.CartItem{}, ErrQuantityExceedsMaximum
	}

	cart, err := u.GetOrCreateCart(ctx, scope)
	if err != nil {
		return model.CartItem{}, err
	}

	var line model.CartItem
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		//カート行をロックして同じカートへの追加を直列にする
		if _, err := lockActiveCart(ctx, r.Carts(), scope, cart.ID); err != nil {
			return err
		}

		price, err := capturePrice(ctx, r.Products(), in.ProductID, in.VariantID)
		if err != nil {
			return err
		}

		existing, err := r.CartItems().FindLineForUpdate(ctx, cart.ID, in.ProductID, in.VariantID)
		switch {
		case err == nil:
			if existing.Quantity+in.Quantity > u.settings.MaxQuantityPerItem {
				return ErrQuantityExceedsMaximum
			}
		case errors.Is(err, repo.ErrNotFound):
			count, err := r.CartItems().CountByCartID(ctx, cart.ID)
			if err != nil {
				return err
			}
			if count >= u.settings.MaxItems {
				return ErrCartItemLimitExceeded
			}
		default:
			return err
		}

		if err := r.CartItems().UpsertLine(ctx, cart.ID, in.ProductID, in.VariantID, in.Quantity, price); err != nil {
			return err
		}
		if err := r.Carts().BumpVersion(ctx, cart.ID); err != nil {
			return err
		}

		line, err = r.CartItems().FindLineForUpdate(ctx, cart.ID, in.ProductID, in.VariantID)
		return err
	})
	if err != nil {
		return model.CartItem{}, u.wrap(err)
	}

	u.invalidate(ctx, scope, cart)

	u.log.Debug("cart item added",
		zap.Int64("cart_id", cart.ID),
		zap.Int64("product_id", in.ProductID),
		zap.Int64("quantity", line.Quantity),
	)
	return line, nil
}

// 追加時点の価格。バリエーション指定があればバリエーションの価格。
func capturePrice(ctx context.Context, products repo.ProductRepository, productID int64, variantID *int64) (int64, error) {
	p, err := products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, internalError(err)
	}
	if !p.IsActive {
		return 0, ErrProductUnavailable
	}
	if variantID == nil {
		return p.Price, nil
	}

	v, err := products.FindVariantByID(ctx, *variantID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, internalError(err)
	}
	//別商品のバリエーションは無いものとして扱う
	if v.ProductID != p.ID {
		return 0, ErrProductNotFound
	}
	if !v.IsActive {
		return 0, ErrProductUnavailable
	}
	return v.Price, nil
}

// 明細を1件返す（自分のカートの明細だけ）
func (u *CartUsecase) GetItem(ctx context.Context, scope model.CartScope, cartItemID int64) (model.CartItem, error) {
	item, _, err := u.authorizeItem(ctx, policy.AbilityView, scope, cartItemID)
	return item, err
}

// 数量変更。成功ならokはtrue。0なら明細を削除してremovedもtrue。
// 価格は追加時点のまま。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, scope model.CartScope, cartItemID int64, quantity int64) (ok bool, removed bool, err error) {
	item, cart, err := u.authorizeItem(ctx, policy.AbilityUpdate, scope, cartItemID)
	if err != nil {
		return false, false, err
	}

	if quantity < 0 {
		return false, false, ErrInvalidQuantity
	}
	if quantity > u.settings.MaxQuantityPerItem {
		return false, false, ErrQuantityExceedsMaximum
	}

	removed = quantity == 0
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if removed {
			if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
				return err
			}
		} else if err := r.CartItems().UpdateQuantity(ctx, item.ID, quantity); err != nil {
			return err
		}
		return r.Carts().BumpVersion(ctx, cart.ID)
	})
	if err != nil {
		return false, false, u.wrap(err)
	}

	u.invalidate(ctx, scope, cart)
	return true, removed, nil
}

// 明細削除
func (u *CartUsecase) RemoveFromCart(ctx context.Context, scope model.CartScope, cartItemID int64) error {
	item, cart, err := u.authorizeItem(ctx, policy.AbilityDelete, scope, cartItemID)
	if err != nil {
		return err
	}

	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
			return err
		}
		return r.Carts().BumpVersion(ctx, cart.ID)
	})
	if err != nil {
		return u.wrap(err)
	}
	u.invalidate(ctx, scope, cart)
	return nil
}

// 明細を全部消す（カートIDはそのまま）
func (u *CartUsecase) ClearCart(ctx context.Context, scope model.CartScope) error {
	cart, err := u.GetOrCreateCart(ctx, scope)
	if err != nil {
		return err
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCartNotFound
		}
		return internalError(err)
	}
	u.invalidate(ctx, scope, cart)
	return nil
}

// 在庫と数量を比べて、問題のある明細だけ item id → メッセージ で返す。更新はしない。
func (u *CartUsecase) ValidateCart(ctx context.Context, scope model.CartScope) (map[int64][]string, error) {
	cart, err := u.GetOrCreateCart(ctx, scope)
	if err != nil {
		return nil, err
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return nil, internalError(err)
	}

	products, variants, err := u.loadCatalog(ctx, items)
	if err != nil {
		return nil, internalError(err)
	}

	problems := map[int64][]string{}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive {
			problems[it.ID] = append(problems[it.ID], msgUnavailable)
			continue
		}

		stock := p.Stock
		if it.VariantID != nil {
			v, ok := variants[*it.VariantID]
			if !ok || !v.IsActive || v.ProductID != p.ID {
				problems[it.ID] = append(problems[it.ID], msgUnavailable)
				continue
			}
			stock = v.Stock
		}

		switch {
		case stock <= 0:
			problems[it.ID] = append(problems[it.ID], msgOutOfStock)
		case stock < it.Quantity:
			problems[it.ID] = append(problems[it.ID], fmt.Sprintf("Only %d items available in stock.", stock))
		}
	}
	return problems, nil
}

// 件数・数量・合計。Redisに(カートID, version)でキャッシュし、同時のミスはsingleflightで1回にまとめる。
func (u *CartUsecase) GetCartSummary(ctx context.Context, scope model.CartScope) (model.CartSummary, error) {
	cart, err := u.GetOrCreateCart(ctx, scope)
	if err != nil {
		return model.CartSummary{}, err
	}

	summary, err := u.summaries.Get(ctx, cart.ID, cart.Version)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		u.log.Debug("cart summary cache unavailable", zap.Int64("cart_id", cart.ID), zap.Error(err))
	}

	flightKey := strconv.FormatInt(cart.ID, 10) + ":" + strconv.FormatInt(cart.Version, 10)
	v, err, _ := u.group.Do(flightKey, func() (interface{}, error) {
		totals, err := u.cartItemRepo.Totals(ctx, cart.ID)
		if err != nil {
			return nil, err
		}

		s := u.buildSummary(totals)
		if err := u.summaries.Set(ctx, cart.ID, cart.Version, s); err != nil {
			u.log.Warn("cart summary cache set failed", zap.Int64("cart_id", cart.ID), zap.Error(err))
		}
		return s, nil
	})
	if err != nil {
		return model.CartSummary{}, internalError(err)
	}
	return v.(model.CartSummary), nil
}

func (u *CartUsecase) buildSummary(t repo.CartTotals) model.CartSummary {
	return model.CartSummary{
		ItemCount:      t.ItemCount,
		TotalQuantity:  t.TotalQuantity,
		TotalPrice:     t.TotalPrice,
		FormattedTotal: FormatMoney(t.TotalPrice, u.settings.CurrencySymbol, u.settings.CurrencyExponent),
		IsEmpty:        t.ItemCount == 0,
	}
}

// ログイン/登録時にゲストカートをユーザーへ移す。
// ユーザーのカートが無ければ付け替え、あれば明細をマージしてゲストカートを消す。
// ゲストカートが無ければ何もしない（false）。
func (u *CartUsecase) TransferGuestCart(ctx context.Context, sessionID string, userID int64) (model.Cart, bool, error) {
	if sessionID == "" {
		return model.Cart{}, false, nil
	}
	if userID <= 0 {
		return model.Cart{}, false, ErrUnauthorized
	}

	var (
		guest       model.Cart
		merged      *model.Cart
		transferred bool
	)
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		guest, err = r.Carts().FindActiveBySessionID(ctx, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		transferred = true

		userCart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			//ユーザーのカートが無い → そのまま付け替え
			return r.Carts().Reassign(ctx, guest.ID, userID)
		}
		if err != nil {
			return err
		}

		merged = &userCart
		return u.mergeInto(ctx, r, guest.ID, userCart.ID)
	})
	if err != nil {
		return model.Cart{}, false, u.wrap(err)
	}
	if !transferred {
		return model.Cart{}, false, nil
	}

	userScope := model.UserScope(userID)
	memo := memoFrom(ctx)
	memo.forget(model.GuestScope(sessionID))
	memo.forget(userScope)
	u.dropSummary(ctx, guest)
	if merged != nil {
		u.dropSummary(ctx, *merged)
	}

	cart, err := u.GetOrCreateCart(ctx, userScope)
	if err != nil {
		return model.Cart{}, false, err
	}

	u.log.Info("guest cart transferred",
		zap.Int64("user_id", userID),
		zap.Int64("guest_cart_id", guest.ID),
		zap.Int64("cart_id", cart.ID),
		zap.Bool("merged", merged != nil),
	)
	return cart, true, nil
}

// ゲストの明細をユーザーカートへ。数量は合算して上限で切る。
// 既存行の価格はユーザー側、新しい行はゲストの追加時点の価格を引き継ぐ。
func (u *CartUsecase) mergeInto(ctx context.Context, r repo.TxRepos, guestCartID int64, userCartID int64) error {
	guestItems, err := r.CartItems().ListByCartID(ctx, guestCartID)
	if err != nil {
		return err
	}

	for _, gi := range guestItems {
		line, err := r.CartItems().FindLineForUpdate(ctx, userCartID, gi.ProductID, gi.VariantID)
		switch {
		case err == nil:
			qty := min(line.Quantity+gi.Quantity, u.settings.MaxQuantityPerItem)
			if qty != line.Quantity {
				if err := r.CartItems().UpdateQuantity(ctx, line.ID, qty); err != nil {
					return err
				}
			}
		case errors.Is(err, repo.ErrNotFound):
			item := &model.CartItem{
				CartID:            userCartID,
				ProductID:         gi.ProductID,
				VariantID:         gi.VariantID,
				Quantity:          min(gi.Quantity, u.settings.MaxQuantityPerItem),
				UnitPriceSnapshot: gi.UnitPriceSnapshot,
			}
			if err := r.CartItems().Create(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}
	}

	if err := r.Carts().BumpVersion(ctx, userCartID); err != nil {
		return err
	}
	return r.Carts().Delete(ctx, guestCartID)
}

// 明細が存在し、かつポリシーで許可されているか
func (u *CartUsecase) authorizeItem(ctx context.Context, ability policy.Ability, scope model.CartScope, cartItemID int64) (model.CartItem, model.Cart, error) {
	if !scope.Valid() {
		return model.CartItem{}, model.Cart{}, ErrUnauthorized
	}
	if cartItemID <= 0 {
		return model.CartItem{}, model.Cart{}, ErrCartItemNotFound
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, model.Cart{}, ErrCartItemNotFound
	}
	if err != nil {
		return model.CartItem{}, model.Cart{}, internalError(err)
	}

	cart, err := u.cartRepo.FindByID(ctx, item.CartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, model.Cart{}, ErrCartItemNotFound
	}
	if err != nil {
		return model.CartItem{}, model.Cart{}, internalError(err)
	}

	if !policy.Allows(ability, scope, item, cart) {
		u.log.Info("cart item access denied",
			zap.String("scope", scope.Key()),
			zap.Int64("cart_item_id", item.ID),
			zap.String("ability", string(ability)),
		)
		return model.CartItem{}, model.Cart{}, ErrForbidden
	}
	return item, cart, nil
}

// 明細の商品・バリエーションをまとめて引く
func (u *CartUsecase) loadCatalog(ctx context.Context, items []model.CartItem) (map[int64]model.Product, map[int64]model.ProductVariant, error) {
	productIDs := make([]int64, 0, len(items))
	variantIDs := make([]int64, 0, len(items))
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
		if it.VariantID != nil {
			variantIDs = append(variantIDs, *it.VariantID)
		}
	}

	ps, err := u.productRepo.ListByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}
	vs, err := u.productRepo.ListVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, nil, err
	}

	pm := make(map[int64]model.Product, len(ps))
	for _, p := range ps {
		pm[p.ID] = p
	}
	vm := make(map[int64]model.ProductVariant, len(vs))
	for _, v := range vs {
		vm[v.ID] = v
	}
	return pm, vm, nil
}

// 明細を変えたらmemoを捨てる。versionが上がっているので古いサマリーはもう読まれない。
// cartは変更前のもの（古いキーの掃除用）。
func (u *CartUsecase) invalidate(ctx context.Context, scope model.CartScope, cart model.Cart) {
	memoFrom(ctx).forget(scope)
	u.dropSummary(ctx, cart)
}

// 古いversionのエントリを消す。失敗してもTTLで消える
func (u *CartUsecase) dropSummary(ctx context.Context, cart model.Cart) {
	if err := u.summaries.Delete(ctx, cart.ID, cart.Version); err != nil {
		u.log.Debug("stale cart summary not deleted",
			zap.Int64("cart_id", cart.ID),
			zap.Int64("version", cart.Version),
			zap.Error(err),
		)
	}
}

// ロック付きで取り直し、別のカートに変わっていないか確認
func lockActiveCart(ctx context.Context, carts repo.CartRepository, scope model.CartScope, cartID int64) (model.Cart, error) {
	var (
		cart model.Cart
		err  error
	)
	if scope.Authenticated() {
		cart, err = carts.FindActiveByUserID(ctx, scope.UserID)
	} else {
		cart, err = carts.FindActiveBySessionID(ctx, scope.SessionID)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, ErrCartNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	if cart.ID != cartID {
		return model.Cart{}, ErrCartNotFound
	}
	return cart, nil
}

// repoのエラーをHTTPErrorへ（既にHTTPErrorならそのまま）
func (u *CartUsecase) wrap(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if _, ok := AsValidationError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrCartItemNotFound
	case errors.Is(err, repo.ErrConflict):
		return &HTTPError{Status: ErrConflict.Status, Message: "cart was modified concurrently", Err: err}
	}
	return internalError(err)
}

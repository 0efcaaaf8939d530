package repository

import "context"

// 1トランザクションで使うリポジトリ。
// カート追加（行ロック→上限チェック→upsert）と引き継ぎ（マージ→削除）で使う。
type TxRepos interface {
	Carts() CartRepository
	CartItems() CartItemRepository
	Products() ProductRepository
}

// fnがエラーを返したらrollback、nilならcommit。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

package transaction

import "context"

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)

	// BeginSerializable はSERIALIZABLE分離レベルでトランザクションを開始する
	// 在庫チェックと予約作成をアトミックに実行する必要がある処理で使用する
	// 直列化異常が検出された場合、コミットは失敗する
	BeginSerializable(ctx context.Context) (Tx, error)
}

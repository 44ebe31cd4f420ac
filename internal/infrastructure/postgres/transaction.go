package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

// PostgreSQLのエラーコード
const (
	// serialization_failure: SERIALIZABLEトランザクションの直列化異常
	pgSerializationFailure = pq.ErrorCode("40001")
	// query_canceled: context のタイムアウトによるクエリ中断
	pgQueryCanceled = pq.ErrorCode("57014")
)

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
func (t *TxWrapper) Commit() error {
	return t.Tx.Commit()
}

// Rollback はトランザクションをロールバックする
func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する（デフォルト分離レベル）
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TxWrapper{Tx: tx}, nil
}

// BeginSerializable はSERIALIZABLE分離レベルでトランザクションを開始する
// 在庫チェックと予約作成を1つの直列化可能な単位として実行するために使う
// 競合した場合、コミットは 40001 (serialization_failure) で失敗する
func (m *TxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
// リポジトリ実装で使用する
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

// IsSerializationFailure は直列化異常によるエラーかを判定する
func IsSerializationFailure(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}

// IsQueryCanceled は context のタイムアウトでクエリが中断されたかを判定する
func IsQueryCanceled(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled
}

var _ transaction.Manager = (*TxManager)(nil)

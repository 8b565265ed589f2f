package store

import (
	"errors"

	"github.com/dgraph-io/badger/v3"
)

var errNilStore = errors.New("nil store")

type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

// OpenInMemory 打开纯内存的 badger，用于测试与单机演示。
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return badger.Open(opts)
}

// Update 在单个读写事务中执行 fn，fn 返回错误时整个事务被丢弃。
func (s *Store) Update(fn func(st *TxnState) error) error {
	if s == nil || s.db == nil {
		return errNilStore
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(newTxnState(txn))
	})
}

// View 在只读快照中执行 fn。
func (s *Store) View(fn func(st *TxnState) error) error {
	if s == nil || s.db == nil {
		return errNilStore
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(newTxnState(txn))
	})
}

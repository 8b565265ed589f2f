package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"permissioned_ledger_go/internal/types"
	"permissioned_ledger_go/pkg/audit"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
)

var (
	keyLastIndex = []byte("audit:lastIndex")
	keyLastHash  = []byte("audit:lastHash")
	keyEntryPref = []byte("audit:entry:")
)

// 将uint64 索引转成 8 字节小端
func entryKey(index uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], index)
	return append(append([]byte{}, keyEntryPref...), b[:]...)
}

// AppendTxn 在调用方的事务中追加审计条目，与状态变更一同提交或丢弃。
func AppendTxn(txn *badger.Txn, payload []byte) (*types.Entry, error) {
	// 复制一份，避免调用方后续修改底层 slice 影响审计内容
	cp := append([]byte(nil), payload...)

	lastIndex, lastHash, err := loadLast(txn)
	if err != nil {
		return nil, err
	}

	e := &types.Entry{
		Index:    lastIndex + 1,
		PrevHash: lastHash,
		Payload:  cp,
	}
	e.EntryHash = audit.AuditHash(e.Index, e.PrevHash, e.Payload)

	enc, err := audit.EncodeEntry(e)
	if err != nil {
		return nil, err
	}
	if err := txn.Set(entryKey(e.Index), enc); err != nil {
		return nil, err
	}

	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], e.Index)
	if err := txn.Set(keyLastIndex, b8[:]); err != nil {
		return nil, err
	}
	if err := txn.Set(keyLastHash, e.EntryHash.Bytes()); err != nil {
		return nil, err
	}
	return e, nil
}

// 获取审计条目
func (s *Store) GetEntry(index uint64) (*types.Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("nil audit store")
	}
	var e *types.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = readEntry(txn, index)
		return err
	})
	return e, err
}

// 验证哈希链
func (s *Store) VerifyChain() error {
	if s == nil || s.db == nil {
		return errors.New("nil audit store")
	}
	return s.db.View(func(txn *badger.Txn) error {
		lastIndex, lastHash, err := loadLast(txn)
		if err != nil {
			return err
		}

		var prevHash common.Hash // genesis prevHash = 0
		for i := uint64(1); i <= lastIndex; i++ {
			e, err := readEntry(txn, i)
			if err != nil {
				return fmt.Errorf("audit entry %d: %w", i, err)
			}
			if e.Index != i {
				return fmt.Errorf("audit entry index mismatch: want %d got %d", i, e.Index)
			}
			if e.PrevHash != prevHash {
				return fmt.Errorf("audit chain broken at %d: prevHash mismatch", i)
			}
			if want := audit.AuditHash(e.Index, e.PrevHash, e.Payload); want != e.EntryHash {
				return fmt.Errorf("audit chain broken at %d: entryHash mismatch", i)
			}
			prevHash = e.EntryHash
		}
		if prevHash != lastHash {
			return errors.New("audit chain head does not match lastHash")
		}
		return nil
	})
}

// ListEntries 从 from 开始读取最多 limit 条审计条目，limit<=0 表示不限。
func (s *Store) ListEntries(from uint64, limit int) ([]*types.Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("nil audit store")
	}
	if from == 0 {
		from = 1
	}
	var entries []*types.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		lastIndex, _, err := loadLast(txn)
		if err != nil {
			return err
		}
		for i := from; i <= lastIndex && (limit <= 0 || len(entries) < limit); i++ {
			e, err := readEntry(txn, i)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func readEntry(txn *badger.Txn, index uint64) (*types.Entry, error) {
	item, err := txn.Get(entryKey(index))
	if err != nil {
		return nil, err
	}
	var e *types.Entry
	err = item.Value(func(val []byte) error {
		dec, derr := audit.DecodeEntry(val)
		if derr != nil {
			return derr
		}
		e = dec
		return nil
	})
	return e, err
}

// 读取lastIndex和lastHash
func loadLast(txn *badger.Txn) (uint64, common.Hash, error) {
	var lastIndex uint64
	var lastHash common.Hash

	if item, err := txn.Get(keyLastIndex); err == nil {
		if err := item.Value(func(v []byte) error {
			if len(v) != 8 {
				return errors.New("invalid lastIndex length")
			}
			lastIndex = binary.LittleEndian.Uint64(v)
			return nil
		}); err != nil {
			return 0, common.Hash{}, err
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, common.Hash{}, err
	}

	if item, err := txn.Get(keyLastHash); err == nil {
		if err := item.Value(func(v []byte) error {
			if len(v) != common.HashLength {
				return errors.New("invalid lastHash length")
			}
			lastHash = common.BytesToHash(v)
			return nil
		}); err != nil {
			return 0, common.Hash{}, err
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, common.Hash{}, err
	}

	return lastIndex, lastHash, nil
}

package store

import (
	"encoding/json"
	"errors"

	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
)

const MemberPrefix = "node:"

func memberKey(raftAddr string) []byte {
	return append([]byte(MemberPrefix), raftAddr...)
}

// PutMember 按 raft 地址记录成员，重复写入覆盖旧地址。
func (s *Store) PutMember(m *types.Member) error {
	if m == nil || m.RaftAddress == "" {
		return errors.New("member raft address required")
	}
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.Update(func(st *TxnState) error {
		return st.txn.Set(memberKey(m.RaftAddress), val)
	})
}

// MemberByRaftAddress 未登记时返回 badger.ErrKeyNotFound。
func (s *Store) MemberByRaftAddress(raftAddr string) (*types.Member, error) {
	var m types.Member
	err := s.View(func(st *TxnState) error {
		item, err := st.txn.Get(memberKey(raftAddr))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers 返回已登记的全部成员。
func (s *Store) ListMembers() ([]types.Member, error) {
	var members []types.Member
	err := s.View(func(st *TxnState) error {
		it := st.txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(MemberPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m types.Member
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			members = append(members, m)
		}
		return nil
	})
	return members, err
}

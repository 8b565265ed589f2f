package store

import (
	"errors"

	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
)

// ListEvents 从序号 from 开始按顺序读取最多 limit 条事件。
func (s *Store) ListEvents(from uint64, limit int) ([]types.Event, error) {
	if from == 0 {
		from = 1
	}
	var events []types.Event
	err := s.View(func(st *TxnState) error {
		last, err := st.lastEventSeq()
		if err != nil {
			return err
		}
		for seq := from; seq <= last && (limit <= 0 || len(events) < limit); seq++ {
			evt, err := st.event(seq)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return errors.New("event log has a gap")
				}
				return err
			}
			events = append(events, *evt)
		}
		return nil
	})
	return events, err
}

// LastEventSeq 返回最新事件序号，没有事件时为 0。
func (s *Store) LastEventSeq() (uint64, error) {
	var seq uint64
	err := s.View(func(st *TxnState) error {
		var err error
		seq, err = st.lastEventSeq()
		return err
	})
	return seq, err
}

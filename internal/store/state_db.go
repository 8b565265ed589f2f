package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	AccPrefix       = "acc:"
	AllowancePrefix = "alw:"
)

var (
	keySupply      = []byte("meta:supply")
	keyPaused      = []byte("meta:paused")
	keyInitialized = []byte("meta:initialized")
	keyLastEvent   = []byte("evt:lastSeq")
	keyEventPref   = []byte("evt:entry:")
)

// TxnState 基于单个 badger 事务实现 ledger.State。
type TxnState struct {
	txn     *badger.Txn
	emitted []types.Event
}

var _ ledger.State = (*TxnState)(nil)

func newTxnState(txn *badger.Txn) *TxnState {
	return &TxnState{txn: txn}
}

// Txn 暴露底层事务，供同一事务内写审计链。
func (s *TxnState) Txn() *badger.Txn { return s.txn }

// Emitted 返回本事务内追加的事件。
func (s *TxnState) Emitted() []types.Event {
	return append([]types.Event(nil), s.emitted...)
}

func accountKey(addr common.Address) []byte {
	return append([]byte(AccPrefix), addr.Bytes()...)
}

func allowanceKey(owner, spender common.Address) []byte {
	k := append([]byte(AllowancePrefix), owner.Bytes()...)
	return append(k, spender.Bytes()...)
}

func eventKey(seq uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seq)
	return append(append([]byte{}, keyEventPref...), b[:]...)
}

func (s *TxnState) Account(addr common.Address) (*types.Account, error) {
	item, err := s.txn.Get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.NewAccount(addr), nil
	}
	if err != nil {
		return nil, err
	}
	var acc types.Account
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &acc)
	}); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", addr.Hex(), err)
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	return &acc, nil
}

func (s *TxnState) PutAccount(acc *types.Account) error {
	val, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	return s.txn.Set(accountKey(acc.Address), val)
}

func (s *TxnState) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	return s.getUint(allowanceKey(owner, spender))
}

func (s *TxnState) SetAllowance(owner, spender common.Address, amount *uint256.Int) error {
	return s.setUint(allowanceKey(owner, spender), amount)
}

func (s *TxnState) TotalSupply() (*uint256.Int, error) {
	return s.getUint(keySupply)
}

func (s *TxnState) SetTotalSupply(supply *uint256.Int) error {
	return s.setUint(keySupply, supply)
}

func (s *TxnState) Paused() (bool, error) {
	return s.getFlag(keyPaused)
}

func (s *TxnState) SetPaused(paused bool) error {
	return s.setFlag(keyPaused, paused)
}

func (s *TxnState) Initialized() (bool, error) {
	return s.getFlag(keyInitialized)
}

func (s *TxnState) SetInitialized() error {
	return s.setFlag(keyInitialized, true)
}

// Emit 追加事件并分配递增序号。
func (s *TxnState) Emit(evt types.Event) error {
	last, err := s.lastEventSeq()
	if err != nil {
		return err
	}
	evt.Seq = last + 1
	val, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := s.txn.Set(eventKey(evt.Seq), val); err != nil {
		return err
	}
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], evt.Seq)
	if err := s.txn.Set(keyLastEvent, b8[:]); err != nil {
		return err
	}
	s.emitted = append(s.emitted, evt)
	return nil
}

func (s *TxnState) lastEventSeq() (uint64, error) {
	item, err := s.txn.Get(keyLastEvent)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(v []byte) error {
		if len(v) != 8 {
			return errors.New("invalid lastSeq length")
		}
		seq = binary.LittleEndian.Uint64(v)
		return nil
	})
	return seq, err
}

// event 按序号读取事件。
func (s *TxnState) event(seq uint64) (*types.Event, error) {
	item, err := s.txn.Get(eventKey(seq))
	if err != nil {
		return nil, err
	}
	var evt types.Event
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &evt)
	})
	return &evt, err
}

func (s *TxnState) getUint(key []byte) (*uint256.Int, error) {
	item, err := s.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	v := new(uint256.Int)
	err = item.Value(func(val []byte) error {
		if len(val) != 32 {
			return fmt.Errorf("invalid uint256 length %d", len(val))
		}
		v.SetBytes(val)
		return nil
	})
	return v, err
}

func (s *TxnState) setUint(key []byte, v *uint256.Int) error {
	b := v.Bytes32()
	return s.txn.Set(key, b[:])
}

func (s *TxnState) getFlag(key []byte) (bool, error) {
	item, err := s.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var flag bool
	err = item.Value(func(val []byte) error {
		flag = len(val) == 1 && val[0] == 1
		return nil
	})
	return flag, err
}

func (s *TxnState) setFlag(key []byte, flag bool) error {
	v := byte(0)
	if flag {
		v = 1
	}
	return s.txn.Set(key, []byte{v})
}

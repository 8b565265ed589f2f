package ledger

import (
	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	owner, spender common.Address
}

// MemState 是 State 的内存实现，不提供回滚，用于单机嵌入与测试。
type MemState struct {
	accounts    map[common.Address]*types.Account
	allowances  map[allowanceKey]*uint256.Int
	supply      *uint256.Int
	paused      bool
	initialized bool
	events      []types.Event
}

func NewMemState() *MemState {
	return &MemState{
		accounts:   make(map[common.Address]*types.Account),
		allowances: make(map[allowanceKey]*uint256.Int),
		supply:     new(uint256.Int),
	}
}

func (m *MemState) Account(addr common.Address) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return types.NewAccount(addr), nil
}

func (m *MemState) PutAccount(acc *types.Account) error {
	m.accounts[acc.Address] = acc.Clone()
	return nil
}

func (m *MemState) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	if v, ok := m.allowances[allowanceKey{owner, spender}]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return new(uint256.Int), nil
}

func (m *MemState) SetAllowance(owner, spender common.Address, amount *uint256.Int) error {
	m.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(amount)
	return nil
}

func (m *MemState) TotalSupply() (*uint256.Int, error) {
	return new(uint256.Int).Set(m.supply), nil
}

func (m *MemState) SetTotalSupply(supply *uint256.Int) error {
	m.supply = new(uint256.Int).Set(supply)
	return nil
}

func (m *MemState) Paused() (bool, error) { return m.paused, nil }

func (m *MemState) SetPaused(paused bool) error {
	m.paused = paused
	return nil
}

func (m *MemState) Initialized() (bool, error) { return m.initialized, nil }

func (m *MemState) SetInitialized() error {
	m.initialized = true
	return nil
}

func (m *MemState) Emit(evt types.Event) error {
	evt.Seq = uint64(len(m.events)) + 1
	m.events = append(m.events, evt)
	return nil
}

// Events 返回已发出的事件副本。
func (m *MemState) Events() []types.Event {
	return append([]types.Event(nil), m.events...)
}

// SumBalances 累加所有账户余额，用于校验总量不变式。
func (m *MemState) SumBalances() *uint256.Int {
	sum := new(uint256.Int)
	for _, acc := range m.accounts {
		sum.Add(sum, acc.Balance)
	}
	return sum
}

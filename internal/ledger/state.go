// Package ledger 实现许可制账本的核心规则：角色、白名单/冻结名单、暂停开关、
// 余额与授权、批量转账。所有组件本身不持有状态，状态通过 State 显式传入。
package ledger

import (
	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State 是一次调用所见的账本状态。
//
// Account 对未出现过的地址返回零值账户；返回值归调用方所有，修改后需 PutAccount。
// 出错时调用方负责丢弃整个调用的写入（例如放弃 badger 事务）。
type State interface {
	Account(addr common.Address) (*types.Account, error)
	PutAccount(acc *types.Account) error

	Allowance(owner, spender common.Address) (*uint256.Int, error)
	SetAllowance(owner, spender common.Address, amount *uint256.Int) error

	TotalSupply() (*uint256.Int, error)
	SetTotalSupply(supply *uint256.Int) error

	Paused() (bool, error)
	SetPaused(paused bool) error

	Initialized() (bool, error)
	SetInitialized() error

	Emit(evt types.Event) error
}

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account 账户状态。首次引用时按零值隐式创建，不会被删除。
type Account struct {
	Address     common.Address `json:"address"`
	Balance     *uint256.Int   `json:"balance"`
	Nonce       uint64         `json:"nonce"`
	Roles       RoleSet        `json:"roles"`
	Whitelisted bool           `json:"whitelisted"`
	Frozen      bool           `json:"frozen"`
}

func NewAccount(addr common.Address) *Account {
	return &Account{Address: addr, Balance: new(uint256.Int)}
}

func (a *Account) HasRole(r Role) bool {
	return a.Roles.Has(r)
}

// Clone 返回深拷贝，避免调用方修改共享的余额指针。
func (a *Account) Clone() *Account {
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	} else {
		cp.Balance = new(uint256.Int)
	}
	return &cp
}

// IsZeroAddress 判断地址是否为空地址。
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}

package service

import (
	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// 封装账户与账本状态的只读查询，每次查询使用一个 badger 只读快照。
type AccountService struct {
	store *store.Store
	token *ledger.Token
}

func NewAccountService(s *store.Store, token *ledger.Token) *AccountService {
	return &AccountService{store: s, token: token}
}

// 读取账户详情。
func (svc *AccountService) GetAccount(addr common.Address) (*types.Account, error) {
	return svc.store.GetAccount(addr)
}

func (svc *AccountService) BalanceOf(addr common.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := svc.store.View(func(st *store.TxnState) error {
		var err error
		v, err = svc.token.Ledger.BalanceOf(st, addr)
		return err
	})
	return v, err
}

func (svc *AccountService) TotalSupply() (*uint256.Int, error) {
	var v *uint256.Int
	err := svc.store.View(func(st *store.TxnState) error {
		var err error
		v, err = svc.token.Ledger.TotalSupply(st)
		return err
	})
	return v, err
}

func (svc *AccountService) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := svc.store.View(func(st *store.TxnState) error {
		var err error
		v, err = svc.token.Ledger.Allowance(st, owner, spender)
		return err
	})
	return v, err
}

func (svc *AccountService) HasRole(roleID common.Hash, addr common.Address) (bool, error) {
	return svc.check(func(st ledger.State) (bool, error) {
		return svc.token.HasRole(st, roleID, addr)
	})
}

func (svc *AccountService) IsWhitelisted(addr common.Address) (bool, error) {
	return svc.check(func(st ledger.State) (bool, error) {
		return svc.token.Whitelist.Contains(st, addr)
	})
}

func (svc *AccountService) IsFrozen(addr common.Address) (bool, error) {
	return svc.check(func(st ledger.State) (bool, error) {
		return svc.token.Frozen.Contains(st, addr)
	})
}

func (svc *AccountService) IsPaused() (bool, error) {
	return svc.check(func(st ledger.State) (bool, error) {
		return svc.token.Pause.Paused(st)
	})
}

// IsInitialized 创世是否已落地。
func (svc *AccountService) IsInitialized() (bool, error) {
	return svc.store.IsInitialized()
}

func (svc *AccountService) check(fn func(st ledger.State) (bool, error)) (bool, error) {
	var ok bool
	err := svc.store.View(func(st *store.TxnState) error {
		var err error
		ok, err = fn(st)
		return err
	})
	return ok, err
}

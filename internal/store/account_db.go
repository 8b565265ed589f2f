package store

import (
	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// 获取账户信息，未出现过的地址返回零值账户
func (s *Store) GetAccount(addr common.Address) (*types.Account, error) {
	var acc *types.Account
	err := s.View(func(st *TxnState) error {
		var err error
		acc, err = st.Account(addr)
		return err
	})
	return acc, err
}

// 是否已完成创世初始化
func (s *Store) IsInitialized() (bool, error) {
	var done bool
	err := s.View(func(st *TxnState) error {
		var err error
		done, err = st.Initialized()
		return err
	})
	return done, err
}

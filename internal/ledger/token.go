package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token 组合各组件，对外提供完整的操作集合。
type Token struct {
	Roles     *RoleRegistry
	Whitelist *GateList
	Frozen    *GateList
	Pause     *PauseSwitch
	Ledger    *Ledger
	Batch     *BatchTransferEngine
}

type options struct {
	policy MembershipPolicy
}

type Option func(*options)

// WithMembershipPolicy 设置重复授予/加入名单时的处理方式，默认幂等。
func WithMembershipPolicy(p MembershipPolicy) Option {
	return func(o *options) { o.policy = p }
}

func New(opts ...Option) *Token {
	o := options{policy: PolicyIdempotent}
	for _, opt := range opts {
		opt(&o)
	}
	l := &Ledger{}
	return &Token{
		Roles:     NewRoleRegistry(o.policy),
		Whitelist: NewGateList(GateWhitelist, o.policy),
		Frozen:    NewGateList(GateFrozen, o.policy),
		Pause:     &PauseSwitch{},
		Ledger:    l,
		Batch:     NewBatchTransferEngine(l),
	}
}

// Genesis 初始化账本：部署者获得全部三种角色与全部初始供应量。
func (t *Token) Genesis(st State, deployer common.Address, supply *uint256.Int) error {
	if err := requireTarget(deployer, "deployer"); err != nil {
		return err
	}
	done, err := st.Initialized()
	if err != nil {
		return err
	}
	if done {
		return types.ErrAlreadyInitialized
	}
	acc, err := st.Account(deployer)
	if err != nil {
		return err
	}
	acc.Roles = types.NewRoleSet(types.RoleAdmin, types.RoleAttorney, types.RoleOperator)
	acc.Balance = new(uint256.Int).Set(supply)
	if err := st.PutAccount(acc); err != nil {
		return err
	}
	if err := st.SetTotalSupply(supply); err != nil {
		return err
	}
	if err := st.SetPaused(false); err != nil {
		return err
	}
	return st.SetInitialized()
}

// Execute 按交易类型分派到对应组件，仅 multiTransfer 返回逐笔结果。
func (t *Token) Execute(st State, tx *types.Transaction) ([]types.LegOutcome, error) {
	amount := tx.Amount
	if amount == nil {
		amount = new(uint256.Int)
	}
	caller := tx.Sender

	switch tx.Type {
	case types.TxTypeTransfer:
		return nil, t.Ledger.Transfer(st, caller, tx.To, amount)
	case types.TxTypeTransferFrom:
		return nil, t.Ledger.TransferFrom(st, caller, tx.From, tx.To, amount)
	case types.TxTypeApprove:
		return nil, t.Ledger.Approve(st, caller, tx.Spender, amount)
	case types.TxTypeIncreaseAllowance:
		return nil, t.Ledger.IncreaseAllowance(st, caller, tx.Spender, amount)
	case types.TxTypeDecreaseAllowance:
		return nil, t.Ledger.DecreaseAllowance(st, caller, tx.Spender, amount)
	case types.TxTypeBurn:
		return nil, t.Ledger.Burn(st, caller, tx.Target, amount)
	case types.TxTypeMultiTransfer:
		return t.Batch.MultiTransfer(st, caller, tx.Recipients, tx.Amounts)
	case types.TxTypeGrantRole:
		return nil, t.Roles.Grant(st, caller, tx.Role, tx.Target)
	case types.TxTypeRevokeRole:
		return nil, t.Roles.Revoke(st, caller, tx.Role, tx.Target)
	case types.TxTypeWhitelistAdd:
		return nil, t.Whitelist.Add(st, caller, tx.Target)
	case types.TxTypeWhitelistRemove:
		return nil, t.Whitelist.Remove(st, caller, tx.Target)
	case types.TxTypeFreeze:
		return nil, t.Frozen.Add(st, caller, tx.Target)
	case types.TxTypeUnfreeze:
		return nil, t.Frozen.Remove(st, caller, tx.Target)
	case types.TxTypePause:
		return nil, t.Pause.Pause(st, caller)
	case types.TxTypeUnpause:
		return nil, t.Pause.Unpause(st, caller)
	default:
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownTxType, tx.Type)
	}
}

// 以下为按角色命名的便捷入口。

func (t *Token) AddAdmin(st State, caller, target common.Address) error {
	return t.Roles.Grant(st, caller, types.RoleAdmin, target)
}

func (t *Token) RevokeAdmin(st State, caller, target common.Address) error {
	return t.Roles.Revoke(st, caller, types.RoleAdmin, target)
}

func (t *Token) AddOperator(st State, caller, target common.Address) error {
	return t.Roles.Grant(st, caller, types.RoleOperator, target)
}

func (t *Token) RevokeOperator(st State, caller, target common.Address) error {
	return t.Roles.Revoke(st, caller, types.RoleOperator, target)
}

func (t *Token) AddAttorney(st State, caller, target common.Address) error {
	return t.Roles.Grant(st, caller, types.RoleAttorney, target)
}

func (t *Token) RevokeAttorney(st State, caller, target common.Address) error {
	return t.Roles.Revoke(st, caller, types.RoleAttorney, target)
}

// HasRole 按角色哈希查询，未知哈希视为未持有。
func (t *Token) HasRole(st State, roleID common.Hash, account common.Address) (bool, error) {
	role, ok := types.RoleFromID(roleID)
	if !ok {
		return false, nil
	}
	return t.Roles.Has(st, role, account)
}

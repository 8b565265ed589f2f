package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger 负责余额、总量与授权额度。所有校验在写入之前完成。
type Ledger struct{}

func (l *Ledger) BalanceOf(st State, addr common.Address) (*uint256.Int, error) {
	acc, err := st.Account(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func (l *Ledger) TotalSupply(st State) (*uint256.Int, error) {
	return st.TotalSupply()
}

func (l *Ledger) Allowance(st State, owner, spender common.Address) (*uint256.Int, error) {
	return st.Allowance(owner, spender)
}

// Transfer 从调用方账户转出。
func (l *Ledger) Transfer(st State, caller, to common.Address, amount *uint256.Int) error {
	if err := ensureNotPaused(st); err != nil {
		return err
	}
	if err := requireTarget(to, "recipient"); err != nil {
		return err
	}
	from, err := st.Account(caller)
	if err != nil {
		return err
	}
	if from.Frozen {
		return fmt.Errorf("%w: %s", types.ErrCallerFrozen, caller.Hex())
	}
	recipient, err := st.Account(to)
	if err != nil {
		return err
	}
	if recipient.Frozen {
		return fmt.Errorf("%w: %s", types.ErrRecipientFrozen, to.Hex())
	}
	return l.move(st, from, recipient, amount)
}

// TransferFrom 由持有 OPERATOR 的调用方动用 from 给予它的授权额度。
func (l *Ledger) TransferFrom(st State, caller, from, to common.Address, amount *uint256.Int) error {
	if err := ensureNotPaused(st); err != nil {
		return err
	}
	spender, err := st.Account(caller)
	if err != nil {
		return err
	}
	if !spender.HasRole(types.RoleOperator) {
		return fmt.Errorf("%w: %s is not OPERATOR", types.ErrUnauthorized, caller.Hex())
	}
	if err := requireTarget(from, "owner"); err != nil {
		return err
	}
	if err := requireTarget(to, "recipient"); err != nil {
		return err
	}
	if spender.Frozen {
		return fmt.Errorf("%w: %s", types.ErrCallerFrozen, caller.Hex())
	}
	owner, err := st.Account(from)
	if err != nil {
		return err
	}
	if owner.Frozen {
		return fmt.Errorf("%w: owner %s", types.ErrCallerFrozen, from.Hex())
	}
	recipient, err := st.Account(to)
	if err != nil {
		return err
	}
	if recipient.Frozen {
		return fmt.Errorf("%w: %s", types.ErrRecipientFrozen, to.Hex())
	}

	allowance, err := st.Allowance(from, caller)
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: allowance %s, amount %s", types.ErrInsufficientAllowance, allowance.Dec(), amount.Dec())
	}
	if err := checkMove(owner, recipient, amount); err != nil {
		return err
	}
	if err := st.SetAllowance(from, caller, new(uint256.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	return l.move(st, owner, recipient, amount)
}

// Approve 直接设置授权额度（非累加）。
func (l *Ledger) Approve(st State, caller, spender common.Address, amount *uint256.Int) error {
	if err := authorizeAllowance(st, caller, spender); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return st.SetAllowance(caller, spender, amount)
}

func (l *Ledger) IncreaseAllowance(st State, caller, spender common.Address, delta *uint256.Int) error {
	if err := authorizeAllowance(st, caller, spender); err != nil {
		return fmt.Errorf("increase allowance: %w", err)
	}
	cur, err := st.Allowance(caller, spender)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(cur, delta)
	if overflow {
		return fmt.Errorf("increase allowance: %w", types.ErrAmountOverflow)
	}
	return st.SetAllowance(caller, spender, next)
}

func (l *Ledger) DecreaseAllowance(st State, caller, spender common.Address, delta *uint256.Int) error {
	if err := authorizeAllowance(st, caller, spender); err != nil {
		return fmt.Errorf("decrease allowance: %w", err)
	}
	cur, err := st.Allowance(caller, spender)
	if err != nil {
		return err
	}
	if cur.Lt(delta) {
		return fmt.Errorf("decrease allowance: %w: allowance %s, delta %s", types.ErrInsufficientAllowance, cur.Dec(), delta.Dec())
	}
	return st.SetAllowance(caller, spender, new(uint256.Int).Sub(cur, delta))
}

// Burn 销毁 target 的余额并同步减少总量，不受暂停影响。
func (l *Ledger) Burn(st State, caller, target common.Address, amount *uint256.Int) error {
	admin, err := st.Account(caller)
	if err != nil {
		return err
	}
	if !admin.HasRole(types.RoleAdmin) {
		return fmt.Errorf("burn: %w: %s is not ADMIN", types.ErrUnauthorized, caller.Hex())
	}
	if err := requireTarget(target, "burn target"); err != nil {
		return err
	}
	acc, err := st.Account(target)
	if err != nil {
		return err
	}
	if acc.Balance.Lt(amount) {
		return fmt.Errorf("burn: %w: balance %s, amount %s", types.ErrInsufficientBalance, acc.Balance.Dec(), amount.Dec())
	}
	supply, err := st.TotalSupply()
	if err != nil {
		return err
	}
	acc.Balance.Sub(acc.Balance, amount)
	if err := st.PutAccount(acc); err != nil {
		return err
	}
	if err := st.SetTotalSupply(supply.Sub(supply, amount)); err != nil {
		return err
	}
	return st.Emit(types.TransferEvent(target, common.Address{}, amount))
}

// 授权额度操作要求调用方是 ADMIN 或在白名单内，且未被冻结。
func authorizeAllowance(st State, caller, spender common.Address) error {
	acc, err := st.Account(caller)
	if err != nil {
		return err
	}
	if acc.Frozen {
		return fmt.Errorf("%w: %s", types.ErrCallerFrozen, caller.Hex())
	}
	if !acc.HasRole(types.RoleAdmin) && !acc.Whitelisted {
		return fmt.Errorf("%w: %s is neither ADMIN nor whitelisted", types.ErrUnauthorized, caller.Hex())
	}
	return requireTarget(spender, "spender")
}

func checkMove(from, to *types.Account, amount *uint256.Int) error {
	if from.Balance.Lt(amount) {
		return fmt.Errorf("%w: balance %s, amount %s", types.ErrInsufficientBalance, from.Balance.Dec(), amount.Dec())
	}
	if from.Address == to.Address {
		return nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(to.Balance, amount); overflow {
		return types.ErrAmountOverflow
	}
	return nil
}

// move 完成一笔扣减与入账并发出 Transfer 事件；from 与 to 相同时余额不变。
func (l *Ledger) move(st State, from, to *types.Account, amount *uint256.Int) error {
	if err := checkMove(from, to, amount); err != nil {
		return err
	}
	if from.Address != to.Address {
		from.Balance.Sub(from.Balance, amount)
		to.Balance.Add(to.Balance, amount)
		if err := st.PutAccount(from); err != nil {
			return err
		}
		if err := st.PutAccount(to); err != nil {
			return err
		}
	}
	return st.Emit(types.TransferEvent(from.Address, to.Address, amount))
}

package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BatchTransferEngine 执行一对多转账，分两阶段：
//
//  1. 整体前置校验（暂停、冻结、长度、权限、空地址、总额），任一失败则整批失败；
//  2. 逐笔执行，接收方被冻结时跳过该笔并发出 MultiTransferPrevented，其余照常转账。
type BatchTransferEngine struct {
	ledger *Ledger
}

func NewBatchTransferEngine(l *Ledger) *BatchTransferEngine {
	return &BatchTransferEngine{ledger: l}
}

type batchLeg struct {
	recipient common.Address
	amount    *uint256.Int
}

func (e *BatchTransferEngine) MultiTransfer(st State, caller common.Address, recipients []common.Address, amounts []*uint256.Int) ([]types.LegOutcome, error) {
	legs, err := e.validate(st, caller, recipients, amounts)
	if err != nil {
		return nil, fmt.Errorf("multi transfer: %w", err)
	}
	return e.execute(st, caller, legs)
}

func (e *BatchTransferEngine) validate(st State, caller common.Address, recipients []common.Address, amounts []*uint256.Int) ([]batchLeg, error) {
	if err := ensureNotPaused(st); err != nil {
		return nil, err
	}
	sender, err := st.Account(caller)
	if err != nil {
		return nil, err
	}
	if sender.Frozen {
		return nil, fmt.Errorf("%w: %s", types.ErrCallerFrozen, caller.Hex())
	}
	if len(recipients) != len(amounts) {
		return nil, fmt.Errorf("%w: %d recipients, %d amounts", types.ErrLengthMismatch, len(recipients), len(amounts))
	}
	if !sender.HasRole(types.RoleAdmin) && !sender.Whitelisted {
		return nil, fmt.Errorf("%w: %s is neither ADMIN nor whitelisted", types.ErrUnauthorized, caller.Hex())
	}

	legs := make([]batchLeg, len(recipients))
	total := new(uint256.Int)
	for i, to := range recipients {
		if types.IsZeroAddress(to) {
			return nil, fmt.Errorf("%w: recipient #%d", types.ErrInvalidAddress, i)
		}
		amount := amounts[i]
		if amount == nil {
			amount = new(uint256.Int)
		}
		legs[i] = batchLeg{recipient: to, amount: amount}
		// 冻结的接收方会在执行阶段被跳过，不计入所需余额。
		recipient, err := st.Account(to)
		if err != nil {
			return nil, err
		}
		if recipient.Frozen {
			continue
		}
		var overflow bool
		if total, overflow = total.AddOverflow(total, amount); overflow {
			return nil, fmt.Errorf("%w: batch total at leg #%d", types.ErrAmountOverflow, i)
		}
	}
	if sender.Balance.Lt(total) {
		return nil, fmt.Errorf("%w: balance %s, batch total %s", types.ErrInsufficientBalance, sender.Balance.Dec(), total.Dec())
	}
	return legs, nil
}

func (e *BatchTransferEngine) execute(st State, caller common.Address, legs []batchLeg) ([]types.LegOutcome, error) {
	outcomes := make([]types.LegOutcome, 0, len(legs))
	for _, leg := range legs {
		recipient, err := st.Account(leg.recipient)
		if err != nil {
			return nil, err
		}
		if recipient.Frozen {
			if err := st.Emit(types.MultiTransferPreventedEvent(caller, leg.recipient, leg.amount)); err != nil {
				return nil, err
			}
			outcomes = append(outcomes, types.LegOutcome{Recipient: leg.recipient, Amount: leg.amount, Status: types.LegSkipped})
			continue
		}
		// 每笔重新读取调用方，前一笔的扣减已经写回状态。
		sender, err := st.Account(caller)
		if err != nil {
			return nil, err
		}
		if leg.recipient == caller {
			recipient = sender
		}
		if err := e.ledger.move(st, sender, recipient, leg.amount); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, types.LegOutcome{Recipient: leg.recipient, Amount: leg.amount, Status: types.LegTransferred})
	}
	return outcomes, nil
}

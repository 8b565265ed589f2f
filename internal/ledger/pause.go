package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// PauseSwitch 全局暂停开关，仅影响 transfer、transferFrom 与 multiTransfer。
type PauseSwitch struct{}

func (p *PauseSwitch) Pause(st State, caller common.Address) error {
	return p.set(st, caller, true)
}

func (p *PauseSwitch) Unpause(st State, caller common.Address) error {
	return p.set(st, caller, false)
}

func (p *PauseSwitch) Paused(st State) (bool, error) {
	return st.Paused()
}

// 冻结状态不影响暂停开关，只检查 ADMIN。
func (p *PauseSwitch) set(st State, caller common.Address, paused bool) error {
	acc, err := st.Account(caller)
	if err != nil {
		return err
	}
	if !acc.HasRole(types.RoleAdmin) {
		return fmt.Errorf("%w: %s cannot toggle pause", types.ErrUnauthorized, caller.Hex())
	}
	return st.SetPaused(paused)
}

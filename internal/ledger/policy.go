package ledger

import (
	"fmt"
	"strings"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// MembershipPolicy 决定重复授予角色、重复加入名单等无变化操作的处理方式。
type MembershipPolicy int

const (
	// PolicyIdempotent 无变化操作直接成功。
	PolicyIdempotent MembershipPolicy = iota
	// PolicyStrict 无变化操作返回 ErrRedundantMembership。
	PolicyStrict
)

func (p MembershipPolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "idempotent"
}

func ParseMembershipPolicy(s string) (MembershipPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "idempotent":
		return PolicyIdempotent, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, fmt.Errorf("unknown membership policy: %s", s)
	}
}

func (p MembershipPolicy) unchanged(what string) error {
	if p == PolicyStrict {
		return fmt.Errorf("%w: %s", types.ErrRedundantMembership, what)
	}
	return nil
}

// authorizeAdmin 管理类操作的调用方校验：先看冻结，再看 ADMIN。
func authorizeAdmin(st State, caller common.Address) (*types.Account, error) {
	acc, err := st.Account(caller)
	if err != nil {
		return nil, err
	}
	if acc.Frozen {
		return nil, fmt.Errorf("%w: %s", types.ErrCallerFrozen, caller.Hex())
	}
	if !acc.HasRole(types.RoleAdmin) {
		return nil, fmt.Errorf("%w: %s is not ADMIN", types.ErrUnauthorized, caller.Hex())
	}
	return acc, nil
}

func requireTarget(addr common.Address, what string) error {
	if types.IsZeroAddress(addr) {
		return fmt.Errorf("%w: zero %s", types.ErrInvalidAddress, what)
	}
	return nil
}

func ensureNotPaused(st State) error {
	paused, err := st.Paused()
	if err != nil {
		return err
	}
	if paused {
		return types.ErrContractPaused
	}
	return nil
}

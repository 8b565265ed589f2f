package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// RoleRegistry 管理 ADMIN/ATTORNEY/OPERATOR 三个独立角色。只有未冻结的 ADMIN 可以授予或撤销。
type RoleRegistry struct {
	policy MembershipPolicy
}

func NewRoleRegistry(policy MembershipPolicy) *RoleRegistry {
	return &RoleRegistry{policy: policy}
}

func (r *RoleRegistry) Grant(st State, caller common.Address, role types.Role, target common.Address) error {
	if err := r.set(st, caller, role, target, true); err != nil {
		return fmt.Errorf("grant %s: %w", role, err)
	}
	return nil
}

func (r *RoleRegistry) Revoke(st State, caller common.Address, role types.Role, target common.Address) error {
	if err := r.set(st, caller, role, target, false); err != nil {
		return fmt.Errorf("revoke %s: %w", role, err)
	}
	return nil
}

func (r *RoleRegistry) Has(st State, role types.Role, account common.Address) (bool, error) {
	acc, err := st.Account(account)
	if err != nil {
		return false, err
	}
	return acc.HasRole(role), nil
}

func (r *RoleRegistry) set(st State, caller common.Address, role types.Role, target common.Address, held bool) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %d", types.ErrInvalidTransaction, uint8(role))
	}
	if _, err := authorizeAdmin(st, caller); err != nil {
		return err
	}
	if err := requireTarget(target, "role target"); err != nil {
		return err
	}
	acc, err := st.Account(target)
	if err != nil {
		return err
	}
	if acc.HasRole(role) == held {
		return r.policy.unchanged(fmt.Sprintf("%s role of %s", role, target.Hex()))
	}
	if held {
		acc.Roles = acc.Roles.With(role)
	} else {
		acc.Roles = acc.Roles.Without(role)
	}
	return st.PutAccount(acc)
}

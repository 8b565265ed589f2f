package ledger

import (
	"fmt"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

type GateKind int

const (
	GateWhitelist GateKind = iota
	GateFrozen
)

func (k GateKind) String() string {
	if k == GateFrozen {
		return "frozen list"
	}
	return "whitelist"
}

// GateList 是白名单或冻结名单。成员标记保存在账户上，只有未冻结的 ADMIN 可以修改。
type GateList struct {
	kind   GateKind
	policy MembershipPolicy
}

func NewGateList(kind GateKind, policy MembershipPolicy) *GateList {
	return &GateList{kind: kind, policy: policy}
}

func (g *GateList) Add(st State, caller, target common.Address) error {
	if err := g.set(st, caller, target, true); err != nil {
		return fmt.Errorf("add to %s: %w", g.kind, err)
	}
	return nil
}

func (g *GateList) Remove(st State, caller, target common.Address) error {
	if err := g.set(st, caller, target, false); err != nil {
		return fmt.Errorf("remove from %s: %w", g.kind, err)
	}
	return nil
}

func (g *GateList) Contains(st State, account common.Address) (bool, error) {
	acc, err := st.Account(account)
	if err != nil {
		return false, err
	}
	return *g.flag(acc), nil
}

func (g *GateList) flag(acc *types.Account) *bool {
	if g.kind == GateFrozen {
		return &acc.Frozen
	}
	return &acc.Whitelisted
}

func (g *GateList) set(st State, caller, target common.Address, member bool) error {
	if _, err := authorizeAdmin(st, caller); err != nil {
		return err
	}
	if err := requireTarget(target, "gate target"); err != nil {
		return err
	}
	acc, err := st.Account(target)
	if err != nil {
		return err
	}
	f := g.flag(acc)
	if *f == member {
		return g.policy.unchanged(fmt.Sprintf("%s membership of %s", g.kind, target.Hex()))
	}
	*f = member
	return st.PutAccount(acc)
}

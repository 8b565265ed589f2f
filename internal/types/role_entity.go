package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role 表示一个角色层级，各层级彼此独立持有。
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleAttorney
	RoleOperator
)

// 角色标识为固定名称的 keccak256 哈希。
var (
	AdminRoleID    = crypto.Keccak256Hash([]byte("ADMIN_ROLE"))
	AttorneyRoleID = crypto.Keccak256Hash([]byte("ATTORNEY_ROLE"))
	OperatorRoleID = crypto.Keccak256Hash([]byte("OPERATOR_ROLE"))
)

var allRoles = []Role{RoleAdmin, RoleAttorney, RoleOperator}

var roleNames = map[Role]string{
	RoleAdmin:    "ADMIN",
	RoleAttorney: "ATTORNEY",
	RoleOperator: "OPERATOR",
}

var roleIDs = map[common.Hash]Role{
	AdminRoleID:    RoleAdmin,
	AttorneyRoleID: RoleAttorney,
	OperatorRoleID: RoleOperator,
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid 判断是否为已定义的单一角色。
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ID 返回角色对应的哈希标识。
func (r Role) ID() common.Hash {
	for id, role := range roleIDs {
		if role == r {
			return id
		}
	}
	return common.Hash{}
}

// RoleFromID 根据哈希标识查找角色。
func RoleFromID(id common.Hash) (Role, bool) {
	r, ok := roleIDs[id]
	return r, ok
}

// ParseRole 接受角色名（ADMIN）、带后缀的名称（ADMIN_ROLE）或 0x 开头的哈希标识。
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		if r, ok := RoleFromID(common.HexToHash(s)); ok {
			return r, nil
		}
		return 0, fmt.Errorf("unknown role id: %s", s)
	}
	name := strings.TrimSuffix(strings.ToUpper(s), "_ROLE")
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role: %s", s)
}

// RoleSet 是账户持有的角色集合。
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool { return s&RoleSet(r) != 0 }

func (s RoleSet) With(r Role) RoleSet { return s | RoleSet(r) }

func (s RoleSet) Without(r Role) RoleSet { return s &^ RoleSet(r) }

// Roles 按固定顺序列出集合中的角色。
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(allRoles))
	for _, r := range s.Roles() {
		names = append(names, r.String())
	}
	return json.Marshal(names)
}

func (s *RoleSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	var set RoleSet
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return err
		}
		set = set.With(r)
	}
	*s = set
	return nil
}

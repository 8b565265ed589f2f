package ledger

import (
	"math/rand"
	"testing"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	walletTo    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	walletThree = common.HexToAddress("0x3000000000000000000000000000000000000003")
	walletFour  = common.HexToAddress("0x4000000000000000000000000000000000000004")
	zeroAddr    = common.Address{}
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func maxAmount() *uint256.Int { return new(uint256.Int).SetAllOne() }

func setup(t *testing.T, opts ...Option) (*Token, *MemState) {
	t.Helper()
	tok := New(opts...)
	st := NewMemState()
	require.NoError(t, tok.Genesis(st, deployer, u(1000)))
	return tok, st
}

func balance(t *testing.T, tok *Token, st State, addr common.Address) uint64 {
	t.Helper()
	b, err := tok.Ledger.BalanceOf(st, addr)
	require.NoError(t, err)
	return b.Uint64()
}

func assertConserved(t *testing.T, st *MemState) {
	t.Helper()
	supply, err := st.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, supply.Dec(), st.SumBalances().Dec(), "sum of balances must equal total supply")
}

// ---------------------------------------------------------------------------
// Genesis
// ---------------------------------------------------------------------------

func TestGenesis(t *testing.T) {
	tok, st := setup(t)

	assert.Equal(t, uint64(1000), balance(t, tok, st, deployer))
	supply, err := tok.Ledger.TotalSupply(st)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), supply.Uint64())

	for _, id := range []common.Hash{types.AdminRoleID, types.AttorneyRoleID, types.OperatorRoleID} {
		ok, err := tok.HasRole(st, id, deployer)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	paused, err := tok.Pause.Paused(st)
	require.NoError(t, err)
	assert.False(t, paused)

	assert.ErrorIs(t, tok.Genesis(st, deployer, u(1)), types.ErrAlreadyInitialized)
	assert.ErrorIs(t, New().Genesis(NewMemState(), zeroAddr, u(1)), types.ErrInvalidAddress)
}

func TestHasRoleUnknownID(t *testing.T) {
	tok, st := setup(t)
	ok, err := tok.HasRole(st, common.Hash{0x42}, deployer)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Transfer
// ---------------------------------------------------------------------------

func TestTransfer(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.Ledger.Transfer(st, deployer, walletTo, u(7)))
	assert.Equal(t, uint64(7), balance(t, tok, st, walletTo))
	assert.Equal(t, uint64(993), balance(t, tok, st, deployer))

	events := st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTransfer, events[0].Kind)
	assert.Equal(t, deployer, events[0].From)
	assert.Equal(t, walletTo, events[0].To)
	assert.Equal(t, uint64(7), events[0].Amount.Uint64())
	assertConserved(t, st)
}

func TestTransferRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, tok *Token, st *MemState)
		caller  common.Address
		to      common.Address
		amount  *uint256.Int
		wantErr error
	}{
		{name: "above balance", caller: deployer, to: walletTo, amount: u(1007), wantErr: types.ErrInsufficientBalance},
		{name: "maximum amount", caller: deployer, to: walletTo, amount: maxAmount(), wantErr: types.ErrInsufficientBalance},
		{name: "from empty account", caller: walletTo, to: deployer, amount: u(1), wantErr: types.ErrInsufficientBalance},
		{name: "to zero address", caller: deployer, to: zeroAddr, amount: u(100), wantErr: types.ErrInvalidAddress},
		{
			name: "caller frozen",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Frozen.Add(st, deployer, deployer))
			},
			caller: deployer, to: walletTo, amount: u(1), wantErr: types.ErrCallerFrozen,
		},
		{
			name: "recipient frozen",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Frozen.Add(st, deployer, walletTo))
			},
			caller: deployer, to: walletTo, amount: u(1), wantErr: types.ErrRecipientFrozen,
		},
		{
			name: "paused",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Pause.Pause(st, deployer))
			},
			caller: deployer, to: deployer, amount: u(107), wantErr: types.ErrContractPaused,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, st := setup(t)
			if tt.prepare != nil {
				tt.prepare(t, tok, st)
			}
			err := tok.Ledger.Transfer(st, tt.caller, tt.to, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, uint64(1000), balance(t, tok, st, deployer))
			assert.Empty(t, st.Events())
		})
	}
}

func TestPauseThenUnpause(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.Pause.Pause(st, deployer))
	assert.ErrorIs(t, tok.Ledger.Transfer(st, deployer, deployer, u(107)), types.ErrContractPaused)

	require.NoError(t, tok.Pause.Unpause(st, deployer))
	require.NoError(t, tok.Ledger.Transfer(st, deployer, walletTo, u(107)))
	assert.Equal(t, uint64(107), balance(t, tok, st, walletTo))
}

func TestTransferToSelfKeepsBalance(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.Ledger.Transfer(st, deployer, deployer, u(10)))
	assert.Equal(t, uint64(1000), balance(t, tok, st, deployer))
	require.Len(t, st.Events(), 1)
}

// ---------------------------------------------------------------------------
// Role registry
// ---------------------------------------------------------------------------

func TestRoleGrantAndRevoke(t *testing.T) {
	roles := []types.Role{types.RoleAdmin, types.RoleAttorney, types.RoleOperator}
	for _, role := range roles {
		t.Run(role.String(), func(t *testing.T) {
			tok, st := setup(t)

			require.NoError(t, tok.Roles.Grant(st, deployer, role, walletTo))
			ok, err := tok.HasRole(st, role.ID(), walletTo)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, tok.Roles.Revoke(st, deployer, role, walletTo))
			ok, err = tok.HasRole(st, role.ID(), walletTo)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNamedRoleEntryPoints(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.AddAdmin(st, deployer, walletTo))
	require.NoError(t, tok.AddAttorney(st, deployer, walletThree))
	require.NoError(t, tok.AddOperator(st, deployer, walletFour))

	acc, _ := st.Account(walletTo)
	assert.Equal(t, types.NewRoleSet(types.RoleAdmin), acc.Roles)
	acc, _ = st.Account(walletThree)
	assert.Equal(t, types.NewRoleSet(types.RoleAttorney), acc.Roles)
	acc, _ = st.Account(walletFour)
	assert.Equal(t, types.NewRoleSet(types.RoleOperator), acc.Roles)

	require.NoError(t, tok.RevokeAdmin(st, deployer, walletTo))
	require.NoError(t, tok.RevokeAttorney(st, deployer, walletThree))
	require.NoError(t, tok.RevokeOperator(st, deployer, walletFour))
	for _, a := range []common.Address{walletTo, walletThree, walletFour} {
		acc, _ := st.Account(a)
		assert.Empty(t, acc.Roles.Roles())
	}
}

func TestRoleMutationRejections(t *testing.T) {
	type mutate func(tok *Token, st State, caller, target common.Address) error
	ops := map[string]mutate{
		"addAdmin":       (*Token).AddAdmin,
		"revokeAdmin":    (*Token).RevokeAdmin,
		"addOperator":    (*Token).AddOperator,
		"revokeOperator": (*Token).RevokeOperator,
		"addAttorney":    (*Token).AddAttorney,
		"revokeAttorney": (*Token).RevokeAttorney,
	}
	for name, op := range ops {
		t.Run(name+"/normal user", func(t *testing.T) {
			tok, st := setup(t)
			assert.ErrorIs(t, op(tok, st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(name+"/operator", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.AddOperator(st, deployer, walletTo))
			assert.ErrorIs(t, op(tok, st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(name+"/attorney", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.AddAttorney(st, deployer, walletTo))
			assert.ErrorIs(t, op(tok, st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(name+"/frozen admin", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.Frozen.Add(st, deployer, deployer))
			assert.ErrorIs(t, op(tok, st, deployer, walletTo), types.ErrCallerFrozen)
		})
		t.Run(name+"/zero target", func(t *testing.T) {
			tok, st := setup(t)
			assert.ErrorIs(t, op(tok, st, deployer, zeroAddr), types.ErrInvalidAddress)
		})
	}
}

func TestAdminMayRevokeOwnRole(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.RevokeAdmin(st, deployer, deployer))
	ok, err := tok.HasRole(st, types.AdminRoleID, deployer)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, tok.AddAdmin(st, deployer, deployer), types.ErrUnauthorized)
}

func TestUnknownRoleRejected(t *testing.T) {
	tok, st := setup(t)
	assert.ErrorIs(t, tok.Roles.Grant(st, deployer, types.Role(0), walletTo), types.ErrInvalidTransaction)
}

// ---------------------------------------------------------------------------
// Gate lists
// ---------------------------------------------------------------------------

func TestGateListAddRemove(t *testing.T) {
	for _, kind := range []GateKind{GateWhitelist, GateFrozen} {
		t.Run(kind.String(), func(t *testing.T) {
			tok, st := setup(t)
			gate := tok.Whitelist
			if kind == GateFrozen {
				gate = tok.Frozen
			}

			require.NoError(t, gate.Add(st, deployer, walletTo))
			in, err := gate.Contains(st, walletTo)
			require.NoError(t, err)
			assert.True(t, in)

			require.NoError(t, gate.Remove(st, deployer, walletTo))
			in, err = gate.Contains(st, walletTo)
			require.NoError(t, err)
			assert.False(t, in)
		})
	}
}

func TestGateListRejections(t *testing.T) {
	for _, kind := range []GateKind{GateWhitelist, GateFrozen} {
		pick := func(tok *Token) *GateList {
			if kind == GateFrozen {
				return tok.Frozen
			}
			return tok.Whitelist
		}
		t.Run(kind.String()+"/normal user", func(t *testing.T) {
			tok, st := setup(t)
			assert.ErrorIs(t, pick(tok).Add(st, walletTo, walletTo), types.ErrUnauthorized)
			assert.ErrorIs(t, pick(tok).Remove(st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(kind.String()+"/operator", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.AddOperator(st, deployer, walletTo))
			assert.ErrorIs(t, pick(tok).Add(st, walletTo, walletTo), types.ErrUnauthorized)
			assert.ErrorIs(t, pick(tok).Remove(st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(kind.String()+"/attorney", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.AddAttorney(st, deployer, walletTo))
			assert.ErrorIs(t, pick(tok).Add(st, walletTo, walletTo), types.ErrUnauthorized)
			assert.ErrorIs(t, pick(tok).Remove(st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(kind.String()+"/whitelisted", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.Whitelist.Add(st, deployer, walletTo))
			assert.ErrorIs(t, pick(tok).Add(st, walletTo, walletThree), types.ErrUnauthorized)
			assert.ErrorIs(t, pick(tok).Remove(st, walletTo, walletTo), types.ErrUnauthorized)
		})
		t.Run(kind.String()+"/zero target", func(t *testing.T) {
			tok, st := setup(t)
			assert.ErrorIs(t, pick(tok).Add(st, deployer, zeroAddr), types.ErrInvalidAddress)
		})
		t.Run(kind.String()+"/frozen admin", func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.AddAdmin(st, deployer, walletTo))
			require.NoError(t, tok.Frozen.Add(st, walletTo, deployer))
			assert.ErrorIs(t, pick(tok).Add(st, deployer, walletThree), types.ErrCallerFrozen)
		})
	}
}

// ---------------------------------------------------------------------------
// Membership policy
// ---------------------------------------------------------------------------

func TestMembershipPolicyIdempotent(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	before, _ := st.Account(walletTo)
	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	after, _ := st.Account(walletTo)
	assert.Equal(t, before, after)

	require.NoError(t, tok.Whitelist.Add(st, deployer, walletTo))
	require.NoError(t, tok.Whitelist.Add(st, deployer, walletTo))
	require.NoError(t, tok.Frozen.Remove(st, deployer, walletThree))
	require.NoError(t, tok.RevokeAttorney(st, deployer, walletThree))
}

func TestMembershipPolicyStrict(t *testing.T) {
	tok, st := setup(t, WithMembershipPolicy(PolicyStrict))

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	assert.ErrorIs(t, tok.AddOperator(st, deployer, walletTo), types.ErrRedundantMembership)
	assert.ErrorIs(t, tok.RevokeAttorney(st, deployer, walletTo), types.ErrRedundantMembership)

	require.NoError(t, tok.Frozen.Add(st, deployer, walletTo))
	assert.ErrorIs(t, tok.Frozen.Add(st, deployer, walletTo), types.ErrRedundantMembership)
	assert.ErrorIs(t, tok.Whitelist.Remove(st, deployer, walletTo), types.ErrRedundantMembership)
}

func TestParseMembershipPolicy(t *testing.T) {
	p, err := ParseMembershipPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIdempotent, p)

	p, err = ParseMembershipPolicy("Strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)
	assert.Equal(t, "strict", p.String())

	_, err = ParseMembershipPolicy("lenient")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Pause switch
// ---------------------------------------------------------------------------

func TestPauseRequiresAdmin(t *testing.T) {
	tok, st := setup(t)
	assert.ErrorIs(t, tok.Pause.Pause(st, walletTo), types.ErrUnauthorized)
	assert.ErrorIs(t, tok.Pause.Unpause(st, walletTo), types.ErrUnauthorized)

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	require.NoError(t, tok.AddAttorney(st, deployer, walletThree))
	assert.ErrorIs(t, tok.Pause.Pause(st, walletTo), types.ErrUnauthorized)
	assert.ErrorIs(t, tok.Pause.Unpause(st, walletTo), types.ErrUnauthorized)
	assert.ErrorIs(t, tok.Pause.Pause(st, walletThree), types.ErrUnauthorized)
}

func TestPauseLeavesAdministrationAlone(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.Pause.Pause(st, deployer))

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	require.NoError(t, tok.Whitelist.Add(st, deployer, walletThree))
	require.NoError(t, tok.Frozen.Add(st, deployer, walletFour))
	require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, u(10)))
	require.NoError(t, tok.Ledger.Burn(st, deployer, deployer, u(10)))

	assert.ErrorIs(t, tok.Ledger.TransferFrom(st, walletTo, deployer, walletThree, u(1)), types.ErrContractPaused)
	_, err := tok.Batch.MultiTransfer(st, deployer, []common.Address{walletTo}, []*uint256.Int{u(1)})
	assert.ErrorIs(t, err, types.ErrContractPaused)
}

// ---------------------------------------------------------------------------
// Allowances
// ---------------------------------------------------------------------------

func TestTransferFrom(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, u(100)))
	allowance, err := tok.Ledger.Allowance(st, deployer, walletTo)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), allowance.Uint64())

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	require.NoError(t, tok.Ledger.TransferFrom(st, walletTo, deployer, walletThree, u(50)))

	allowance, err = tok.Ledger.Allowance(st, deployer, walletTo)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), allowance.Uint64())
	assert.Equal(t, uint64(50), balance(t, tok, st, walletThree))
	assert.Equal(t, uint64(950), balance(t, tok, st, deployer))

	events := st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, deployer, events[0].From)
	assert.Equal(t, walletThree, events[0].To)
	assertConserved(t, st)
}

func TestTransferFromRejections(t *testing.T) {
	tests := []struct {
		name     string
		operator bool
		prepare  func(t *testing.T, tok *Token, st *MemState)
		from, to common.Address
		amount   uint64
		wantErr  error
	}{
		{name: "normal user", operator: false, from: deployer, to: walletThree, amount: 50, wantErr: types.ErrUnauthorized},
		{name: "zero recipient", operator: true, from: deployer, to: zeroAddr, amount: 50, wantErr: types.ErrInvalidAddress},
		{name: "zero owner", operator: true, from: zeroAddr, to: walletThree, amount: 50, wantErr: types.ErrInvalidAddress},
		{name: "above allowance", operator: true, from: deployer, to: walletThree, amount: 101, wantErr: types.ErrInsufficientAllowance},
		{
			name: "above balance", operator: true, from: deployer, to: walletThree, amount: 100,
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Ledger.Burn(st, deployer, deployer, u(950)))
			},
			wantErr: types.ErrInsufficientBalance,
		},
		{
			name: "owner frozen", operator: true, from: deployer, to: walletThree, amount: 10,
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Frozen.Add(st, deployer, deployer))
			},
			wantErr: types.ErrCallerFrozen,
		},
		{
			name: "recipient frozen", operator: true, from: deployer, to: walletThree, amount: 10,
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Frozen.Add(st, deployer, walletThree))
			},
			wantErr: types.ErrRecipientFrozen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, st := setup(t)
			require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, u(100)))
			if tt.operator {
				require.NoError(t, tok.AddOperator(st, deployer, walletTo))
			}
			if tt.prepare != nil {
				tt.prepare(t, tok, st)
			}
			err := tok.Ledger.TransferFrom(st, walletTo, tt.from, tt.to, u(tt.amount))
			require.ErrorIs(t, err, tt.wantErr)

			allowance, err := tok.Ledger.Allowance(st, deployer, walletTo)
			require.NoError(t, err)
			assert.Equal(t, uint64(100), allowance.Uint64())
		})
	}
}

func TestAllowanceAdjustments(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, u(100)))
	require.NoError(t, tok.Ledger.IncreaseAllowance(st, deployer, walletTo, u(50)))
	a, _ := tok.Ledger.Allowance(st, deployer, walletTo)
	assert.Equal(t, uint64(150), a.Uint64())

	require.NoError(t, tok.Ledger.DecreaseAllowance(st, deployer, walletTo, u(100)))
	a, _ = tok.Ledger.Allowance(st, deployer, walletTo)
	assert.Equal(t, uint64(50), a.Uint64())

	assert.ErrorIs(t, tok.Ledger.DecreaseAllowance(st, deployer, walletTo, u(51)), types.ErrInsufficientAllowance)

	// approve 是覆盖而不是累加
	require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, u(7)))
	a, _ = tok.Ledger.Allowance(st, deployer, walletTo)
	assert.Equal(t, uint64(7), a.Uint64())

	require.NoError(t, tok.Ledger.Approve(st, deployer, walletTo, maxAmount()))
	assert.ErrorIs(t, tok.Ledger.IncreaseAllowance(st, deployer, walletTo, u(1)), types.ErrAmountOverflow)
}

func TestAllowancePrivilege(t *testing.T) {
	tok, st := setup(t)

	// 仅 OPERATOR
	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	assert.ErrorIs(t, tok.Ledger.Approve(st, walletTo, walletThree, u(100)), types.ErrUnauthorized)

	// 普通用户
	assert.ErrorIs(t, tok.Ledger.IncreaseAllowance(st, walletFour, walletTo, u(50)), types.ErrUnauthorized)
	assert.ErrorIs(t, tok.Ledger.DecreaseAllowance(st, walletFour, walletTo, u(50)), types.ErrUnauthorized)

	// 仅 ATTORNEY
	require.NoError(t, tok.AddAttorney(st, deployer, walletThree))
	assert.ErrorIs(t, tok.Ledger.Approve(st, walletThree, walletTo, u(1)), types.ErrUnauthorized)

	// 白名单用户可以授权
	require.NoError(t, tok.Whitelist.Add(st, deployer, walletFour))
	require.NoError(t, tok.Ledger.Approve(st, walletFour, walletTo, u(5)))

	assert.ErrorIs(t, tok.Ledger.Approve(st, deployer, zeroAddr, u(100)), types.ErrInvalidAddress)

	require.NoError(t, tok.Frozen.Add(st, deployer, walletFour))
	assert.ErrorIs(t, tok.Ledger.Approve(st, walletFour, walletTo, u(5)), types.ErrCallerFrozen)
}

// ---------------------------------------------------------------------------
// Burn
// ---------------------------------------------------------------------------

func TestBurn(t *testing.T) {
	tok, st := setup(t)

	require.NoError(t, tok.Ledger.Burn(st, deployer, deployer, u(100)))
	assert.Equal(t, uint64(900), balance(t, tok, st, deployer))
	supply, _ := tok.Ledger.TotalSupply(st)
	assert.Equal(t, uint64(900), supply.Uint64())

	events := st.Events()
	require.Len(t, events, 1)
	assert.Equal(t, zeroAddr, events[0].To)
	assertConserved(t, st)
}

func TestBurnRejections(t *testing.T) {
	tok, st := setup(t)
	assert.ErrorIs(t, tok.Ledger.Burn(st, walletTo, deployer, u(100)), types.ErrUnauthorized)
	assert.ErrorIs(t, tok.Ledger.Burn(st, deployer, deployer, u(1001)), types.ErrInsufficientBalance)
	assert.ErrorIs(t, tok.Ledger.Burn(st, deployer, zeroAddr, u(1)), types.ErrInvalidAddress)

	require.NoError(t, tok.AddOperator(st, deployer, walletTo))
	assert.ErrorIs(t, tok.Ledger.Burn(st, walletTo, deployer, u(1)), types.ErrUnauthorized)
	assert.Equal(t, uint64(1000), balance(t, tok, st, deployer))
}

// ---------------------------------------------------------------------------
// Multi transfer
// ---------------------------------------------------------------------------

func TestMultiTransfer(t *testing.T) {
	tok, st := setup(t)

	legs, err := tok.Batch.MultiTransfer(st, deployer,
		[]common.Address{walletTo, walletThree}, []*uint256.Int{u(100), u(150)})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, types.LegTransferred, legs[0].Status)
	assert.Equal(t, types.LegTransferred, legs[1].Status)

	assert.Equal(t, uint64(100), balance(t, tok, st, walletTo))
	assert.Equal(t, uint64(150), balance(t, tok, st, walletThree))
	assert.Equal(t, uint64(750), balance(t, tok, st, deployer))

	events := st.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.EventTransfer, events[0].Kind)
	assert.Equal(t, walletTo, events[0].To)
	assert.Equal(t, walletThree, events[1].To)
	assertConserved(t, st)
}

func TestMultiTransferSkipsFrozenRecipient(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.Frozen.Add(st, deployer, walletTo))

	legs, err := tok.Batch.MultiTransfer(st, deployer,
		[]common.Address{walletTo, walletThree}, []*uint256.Int{u(100), u(150)})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, types.LegSkipped, legs[0].Status)
	assert.Equal(t, types.LegTransferred, legs[1].Status)

	assert.Equal(t, uint64(0), balance(t, tok, st, walletTo))
	assert.Equal(t, uint64(150), balance(t, tok, st, walletThree))
	assert.Equal(t, uint64(850), balance(t, tok, st, deployer))

	events := st.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.EventMultiTransferPrevented, events[0].Kind)
	assert.Equal(t, deployer, events[0].From)
	assert.Equal(t, walletTo, events[0].To)
	assert.Equal(t, uint64(100), events[0].Amount.Uint64())
	assert.Equal(t, types.EventTransfer, events[1].Kind)
	assertConserved(t, st)
}

func TestMultiTransferBalanceCoversProcessedLegsOnly(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.Frozen.Add(st, deployer, walletTo))

	legs, err := tok.Batch.MultiTransfer(st, deployer,
		[]common.Address{walletTo, walletThree}, []*uint256.Int{u(1000), u(150)})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, types.LegSkipped, legs[0].Status)
	assert.Equal(t, types.LegTransferred, legs[1].Status)
	assert.Equal(t, uint64(850), balance(t, tok, st, deployer))
	assert.Equal(t, uint64(150), balance(t, tok, st, walletThree))

	// 未冻结部分仍超出余额时整批失败
	_, err = tok.Batch.MultiTransfer(st, deployer,
		[]common.Address{walletTo, walletFour}, []*uint256.Int{u(1), u(851)})
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Equal(t, uint64(850), balance(t, tok, st, deployer))
	assert.Equal(t, uint64(0), balance(t, tok, st, walletFour))

	// 冻结接收方的金额不参与溢出计算
	_, err = tok.Batch.MultiTransfer(st, deployer,
		[]common.Address{walletTo, walletFour}, []*uint256.Int{maxAmount(), u(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance(t, tok, st, walletFour))
	assertConserved(t, st)
}

func TestMultiTransferByWhitelisted(t *testing.T) {
	tok, st := setup(t)
	require.NoError(t, tok.Ledger.Transfer(st, deployer, walletTo, u(100)))
	require.NoError(t, tok.Whitelist.Add(st, deployer, walletTo))

	_, err := tok.Batch.MultiTransfer(st, walletTo, []common.Address{deployer, walletThree}, []*uint256.Int{u(50), u(25)})
	require.NoError(t, err)
	assert.Equal(t, uint64(25), balance(t, tok, st, walletTo))
	assert.Equal(t, uint64(950), balance(t, tok, st, deployer))
}

func TestMultiTransferEmptyBatch(t *testing.T) {
	tok, st := setup(t)
	legs, err := tok.Batch.MultiTransfer(st, deployer, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, legs)
	assert.Empty(t, st.Events())
}

func TestMultiTransferStructuralFailures(t *testing.T) {
	addrs := func(a ...common.Address) []common.Address { return a }
	amts := func(v ...*uint256.Int) []*uint256.Int { return v }

	tests := []struct {
		name       string
		prepare    func(t *testing.T, tok *Token, st *MemState)
		caller     common.Address
		recipients []common.Address
		amounts    []*uint256.Int
		wantErr    error
	}{
		{
			name:    "paused",
			prepare: func(t *testing.T, tok *Token, st *MemState) { require.NoError(t, tok.Pause.Pause(st, deployer)) },
			caller:  deployer, recipients: addrs(walletTo, walletThree), amounts: amts(u(100), u(150)),
			wantErr: types.ErrContractPaused,
		},
		{
			name: "caller frozen",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Frozen.Add(st, deployer, deployer))
			},
			caller: deployer, recipients: addrs(walletTo, walletThree), amounts: amts(u(100), u(150)),
			wantErr: types.ErrCallerFrozen,
		},
		{
			name: "attorney only",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.AddAttorney(st, deployer, walletTo))
			},
			caller: walletTo, recipients: addrs(walletFour, walletThree), amounts: amts(u(100), u(150)),
			wantErr: types.ErrUnauthorized,
		},
		{
			name:   "above balance in aggregate",
			caller: deployer, recipients: addrs(walletTo, walletThree), amounts: amts(u(1000), u(150)),
			wantErr: types.ErrInsufficientBalance,
		},
		{
			name:   "more amounts than recipients",
			caller: deployer, recipients: addrs(walletTo, walletThree), amounts: amts(u(1000), u(150), u(200)),
			wantErr: types.ErrLengthMismatch,
		},
		{
			name:   "more recipients than amounts",
			caller: deployer, recipients: addrs(walletTo, walletThree, walletFour), amounts: amts(u(1000), u(150)),
			wantErr: types.ErrLengthMismatch,
		},
		{
			name:   "zero recipient late in batch",
			caller: deployer, recipients: addrs(walletTo, walletThree, zeroAddr), amounts: amts(u(100), u(150), u(1)),
			wantErr: types.ErrInvalidAddress,
		},
		{
			name:   "amount overflow",
			caller: deployer, recipients: addrs(walletTo, walletThree, walletFour), amounts: amts(u(1), u(2), maxAmount()),
			wantErr: types.ErrAmountOverflow,
		},
		{
			name:   "empty account",
			caller: walletTo, recipients: addrs(deployer), amounts: amts(u(1)),
			wantErr: types.ErrUnauthorized,
		},
		{
			name: "funded account without role",
			prepare: func(t *testing.T, tok *Token, st *MemState) {
				require.NoError(t, tok.Ledger.Transfer(st, deployer, walletTo, u(100)))
			},
			caller: walletTo, recipients: addrs(deployer), amounts: amts(u(50)),
			wantErr: types.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, st := setup(t)
			if tt.prepare != nil {
				tt.prepare(t, tok, st)
			}
			deployerBefore := balance(t, tok, st, deployer)
			eventsBefore := len(st.Events())

			legs, err := tok.Batch.MultiTransfer(st, tt.caller, tt.recipients, tt.amounts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, legs)
			assert.Equal(t, deployerBefore, balance(t, tok, st, deployer))
			assert.Equal(t, uint64(0), balance(t, tok, st, walletThree))
			assert.Len(t, st.Events(), eventsBefore)
		})
	}
}

// ---------------------------------------------------------------------------
// Execute dispatch
// ---------------------------------------------------------------------------

func TestExecuteDispatch(t *testing.T) {
	tok, st := setup(t)

	_, err := tok.Execute(st, &types.Transaction{Type: types.TxTypeGrantRole, Sender: deployer, Role: types.RoleOperator, Target: walletTo})
	require.NoError(t, err)
	_, err = tok.Execute(st, &types.Transaction{Type: types.TxTypeApprove, Sender: deployer, Spender: walletTo, Amount: u(30)})
	require.NoError(t, err)
	_, err = tok.Execute(st, &types.Transaction{Type: types.TxTypeTransferFrom, Sender: walletTo, From: deployer, To: walletThree, Amount: u(30)})
	require.NoError(t, err)
	legs, err := tok.Execute(st, &types.Transaction{
		Type:       types.TxTypeMultiTransfer,
		Sender:     deployer,
		Recipients: []common.Address{walletFour},
		Amounts:    []*uint256.Int{u(20)},
	})
	require.NoError(t, err)
	require.Len(t, legs, 1)

	assert.Equal(t, uint64(30), balance(t, tok, st, walletThree))
	assert.Equal(t, uint64(20), balance(t, tok, st, walletFour))

	_, err = tok.Execute(st, &types.Transaction{Type: types.TxType(99), Sender: deployer})
	assert.ErrorIs(t, err, types.ErrUnknownTxType)
}

// 随机操作序列下总量守恒，且暂停期间不会有转账成功。
func TestConservationUnderRandomOperations(t *testing.T) {
	tok, st := setup(t)
	wallets := []common.Address{deployer, walletTo, walletThree, walletFour}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		caller := wallets[rng.Intn(len(wallets))]
		target := wallets[rng.Intn(len(wallets))]
		amount := u(uint64(rng.Intn(200)))
		paused, _ := st.Paused()

		var err error
		moving := false
		switch rng.Intn(8) {
		case 0:
			moving = true
			err = tok.Ledger.Transfer(st, caller, target, amount)
		case 1:
			moving = true
			_, err = tok.Batch.MultiTransfer(st, caller, []common.Address{target, wallets[rng.Intn(len(wallets))]}, []*uint256.Int{amount, u(3)})
		case 2:
			_ = tok.Frozen.Add(st, caller, target)
		case 3:
			_ = tok.Frozen.Remove(st, caller, target)
		case 4:
			_ = tok.Ledger.Burn(st, caller, target, u(uint64(rng.Intn(5))))
		case 5:
			if rng.Intn(2) == 0 {
				_ = tok.Pause.Pause(st, caller)
			} else {
				_ = tok.Pause.Unpause(st, caller)
			}
		case 6:
			_ = tok.Whitelist.Add(st, caller, target)
		case 7:
			_ = tok.Ledger.Approve(st, caller, target, amount)
			moving = true
			err = tok.Ledger.TransferFrom(st, target, caller, wallets[rng.Intn(len(wallets))], amount)
		}
		if paused && moving {
			assert.ErrorIs(t, err, types.ErrContractPaused)
		}
		assertConserved(t, st)
	}
}

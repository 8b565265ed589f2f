package node

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/service"
	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/txVerify"
	"permissioned_ledger_go/internal/types"
	"permissioned_ledger_go/pkg/crypto"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/raft"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFSM(t *testing.T) (*fsm, *store.Store) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := store.NewStore(db)
	txSvc := service.NewTransactionService(s, ledger.New(), txVerify.NewValidator(0), zap.NewNop())
	return &fsm{txSvc: txSvc, store: s, db: db}, s
}

func applyCommand(t *testing.T, f *fsm, cmd raftCommand) *applyResult {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	res, ok := f.Apply(&raft.Log{Data: data}).(*applyResult)
	require.True(t, ok)
	return res
}

func TestFSMApply(t *testing.T) {
	f, s := newTestFSM(t)
	priv, deployer, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	res := applyCommand(t, f, raftCommand{Type: commandGenesis, Genesis: &genesisCommand{Deployer: deployer, Supply: uint256.NewInt(50)}})
	require.NoError(t, res.err)

	res = applyCommand(t, f, raftCommand{Type: commandGenesis, Genesis: &genesisCommand{Deployer: deployer, Supply: uint256.NewInt(50)}})
	assert.ErrorIs(t, res.err, types.ErrAlreadyInitialized)

	to := common.HexToAddress("0x2000000000000000000000000000000000000002")
	tx := types.Transaction{Type: types.TxTypeTransfer, Sender: deployer, Nonce: 1, To: to, Amount: uint256.NewInt(5)}
	require.NoError(t, txVerify.SignTransaction(&tx, priv))

	res = applyCommand(t, f, raftCommand{Type: commandTransaction, Transaction: &tx})
	require.NoError(t, res.err)
	require.NotNil(t, res.receipt)
	assert.Equal(t, uint64(1), res.receipt.AuditIndex)

	acc, err := s.GetAccount(to)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), acc.Balance.Uint64())

	res = applyCommand(t, f, raftCommand{Type: commandTransaction, Transaction: &tx})
	assert.ErrorIs(t, res.err, types.ErrInvalidNonce)

	res = applyCommand(t, f, raftCommand{Type: "mint"})
	assert.Error(t, res.err)

	res = applyCommand(t, f, raftCommand{Type: commandTransaction})
	assert.Error(t, res.err)
}

type memSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *memSink) ID() string    { return "test" }
func (s *memSink) Close() error  { return nil }
func (s *memSink) Cancel() error { s.cancelled = true; return nil }

func TestSnapshotRestore(t *testing.T) {
	src, _ := newTestFSM(t)
	priv, deployer, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, applyCommand(t, src, raftCommand{Type: commandGenesis, Genesis: &genesisCommand{Deployer: deployer, Supply: uint256.NewInt(77)}}).err)
	require.NoError(t, applyCommand(t, src, raftCommand{Type: commandMember, Member: &types.Member{NodeID: "n1", RaftAddress: "127.0.0.1:7000", HTTPAddress: "127.0.0.1:8080"}}).err)
	tx := types.Transaction{Type: types.TxTypeBurn, Sender: deployer, Nonce: 1, Target: deployer, Amount: uint256.NewInt(7)}
	require.NoError(t, txVerify.SignTransaction(&tx, priv))
	require.NoError(t, applyCommand(t, src, raftCommand{Type: commandTransaction, Transaction: &tx}).err)

	snap, err := src.Snapshot()
	require.NoError(t, err)
	sink := &memSink{}
	require.NoError(t, snap.Persist(sink))
	snap.Release()
	assert.False(t, sink.cancelled)

	dst, dstStore := newTestFSM(t)
	require.NoError(t, dst.Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))))

	acc, err := dstStore.GetAccount(deployer)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), acc.Balance.Uint64())
	require.NoError(t, dstStore.VerifyChain())

	_, err = dstStore.GetEntry(1)
	assert.NotErrorIs(t, err, badger.ErrKeyNotFound)

	m, err := dstStore.MemberByRaftAddress("127.0.0.1:7000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", m.HTTPAddress)
}

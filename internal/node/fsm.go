package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"permissioned_ledger_go/internal/service"
	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/raft"
	"github.com/holiman/uint256"
)

// raftCommand 为 Raft 日志条目的统一格式。
type raftCommand struct {
	Type        string             `json:"type"`
	Transaction *types.Transaction `json:"transaction,omitempty"`
	Genesis     *genesisCommand    `json:"genesis,omitempty"`
	Member      *types.Member      `json:"member,omitempty"`
}

type genesisCommand struct {
	Deployer common.Address `json:"deployer"`
	Supply   *uint256.Int   `json:"supply"`
}

// applyResult 状态机执行结果，业务错误随结果返回给提交方，不影响日志本身。
type applyResult struct {
	receipt *types.Receipt
	err     error
}

// fsm 实现 raft.FSM 接口，负责真正的状态变更。
type fsm struct {
	txSvc *service.TransactionService
	store *store.Store
	db    *badger.DB
}

// Apply 会在日志提交后执行具体业务操作。
func (f *fsm) Apply(logEntry *raft.Log) interface{} {
	var cmd raftCommand
	if err := json.Unmarshal(logEntry.Data, &cmd); err != nil {
		return &applyResult{err: err}
	}
	switch cmd.Type {
	case commandTransaction:
		if cmd.Transaction == nil {
			return &applyResult{err: errors.New("nil transaction")}
		}
		receipt, err := f.txSvc.Apply(*cmd.Transaction)
		return &applyResult{receipt: receipt, err: err}
	case commandGenesis:
		if cmd.Genesis == nil || cmd.Genesis.Supply == nil {
			return &applyResult{err: errors.New("incomplete genesis command")}
		}
		return &applyResult{err: f.txSvc.Genesis(cmd.Genesis.Deployer, cmd.Genesis.Supply)}
	case commandMember:
		return &applyResult{err: f.store.PutMember(cmd.Member)}
	default:
		return &applyResult{err: fmt.Errorf("unknown command: %s", cmd.Type)}
	}
}

// Snapshot 使用 Badger 自带备份生成快照。
func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	return &badgerSnapshot{db: f.db}, nil
}

// Restore 清空 Badger 并从快照恢复。
func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	if err := f.db.DropAll(); err != nil {
		return err
	}
	return f.db.Load(rc, 10)
}

// badgerSnapshot 负责将 Badger 快照写入 Raft sink。
type badgerSnapshot struct {
	db *badger.DB
}

func (s *badgerSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := s.db.Backup(sink, 0); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *badgerSnapshot) Release() {}

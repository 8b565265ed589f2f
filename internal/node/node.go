package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"permissioned_ledger_go/config"
	"permissioned_ledger_go/internal/api"
	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/service"
	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/txVerify"
	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const (
	commandTransaction = "transaction"
	commandGenesis     = "genesis"
	commandMember      = "member"

	applyTimeout  = 5 * time.Second
	leaderTimeout = 15 * time.Second
)

// Node 表示一个账本节点，封装业务服务与 Raft 复制。
type Node struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *badger.DB
	store      *store.Store
	server     *api.Server
	accountSvc *service.AccountService
	txSvc      *service.TransactionService
	auditSvc   *service.AuditService

	deployer common.Address
	supply   *uint256.Int

	raftNode *raft.Raft
}

// NewNode 根据配置初始化业务服务与 Raft 实例。
func NewNode(cfg *config.Config, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := ledger.ParseMembershipPolicy(cfg.MembershipPolicy)
	if err != nil {
		return nil, err
	}
	supply, err := types.ParseAmount(cfg.InitialSupply)
	if err != nil {
		return nil, fmt.Errorf("initial_supply: %w", err)
	}

	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	st := store.NewStore(db)
	token := ledger.New(ledger.WithMembershipPolicy(policy))

	accountSvc := service.NewAccountService(st, token)
	auditSvc := service.NewAuditService(st)
	if err := auditSvc.VerifyChain(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit chain verification failed: %w", err)
	}
	validator := txVerify.NewValidator(cfg.MaxBatchSize)
	txSvc := service.NewTransactionService(st, token, validator, logger.Named("tx"))

	n := &Node{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      st,
		accountSvc: accountSvc,
		txSvc:      txSvc,
		auditSvc:   auditSvc,
		deployer:   cfg.DeployerAddress(),
		supply:     supply,
	}

	hasState, err := n.initRaft()
	if err != nil {
		n.Close()
		return nil, err
	}
	if !hasState && !cfg.RaftBootstrap {
		if err := n.joinCluster(); err != nil {
			n.Close()
			return nil, err
		}
	}
	if cfg.RaftBootstrap {
		if err := n.bootstrapState(); err != nil {
			n.Close()
			return nil, err
		}
	}

	n.server = api.NewServer(accountSvc, auditSvc, n.proposeTransaction,
		api.WithRaft(n.handleJoinRequest, n.handleRemoveRequest, n.raftStatus),
		api.WithLogger(logger.Named("api")),
	)
	return n, nil
}

// initRaft 创建并配置 Raft 组件，返回是否存在旧状态。
func (n *Node) initRaft() (bool, error) {
	if err := os.MkdirAll(n.cfg.RaftDir, 0o755); err != nil {
		return false, err
	}

	hlog := newRaftLogger(n.logger.Named("raft"), n.cfg.LogLevel)
	rConfig := raft.DefaultConfig()
	rConfig.LocalID = raft.ServerID(n.cfg.NodeID)
	rConfig.Logger = hlog

	fsm := &fsm{txSvc: n.txSvc, store: n.store, db: n.db}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.RaftDir, "raft-log.bolt"))
	if err != nil {
		return false, err
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.RaftDir, "raft-stable.bolt"))
	if err != nil {
		return false, err
	}
	snapStore, err := raft.NewFileSnapshotStoreWithLogger(n.cfg.RaftDir, 1, hlog)
	if err != nil {
		return false, err
	}

	transport, err := raft.NewTCPTransportWithLogger(n.cfg.RaftBind, nil, 3, 10*time.Second, hlog)
	if err != nil {
		return false, err
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapStore)
	if err != nil {
		return false, err
	}

	raftNode, err := raft.NewRaft(rConfig, fsm, logStore, stableStore, snapStore, transport)
	if err != nil {
		return false, err
	}

	if n.cfg.RaftBootstrap && !hasState {
		conf := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(n.cfg.NodeID),
					Address: transport.LocalAddr(),
				},
			},
		}
		if err := raftNode.BootstrapCluster(conf).Error(); err != nil {
			return false, err
		}
	}

	n.raftNode = raftNode
	return hasState, nil
}

// Start 启动 HTTP 服务，提供对外接口。
func (n *Node) Start() error {
	addr := fmt.Sprintf(":%d", n.cfg.HTTPPort)
	n.logger.Info("node listening",
		zap.String("node_id", n.cfg.NodeID),
		zap.String("http", addr),
		zap.String("raft_bind", n.cfg.RaftBind),
		zap.String("data_dir", n.cfg.DataDir),
		zap.String("raft_dir", n.cfg.RaftDir),
	)
	return n.server.ListenAndServe(addr)
}

// Close 关闭 Raft 和 Badger。
func (n *Node) Close() error {
	if n.raftNode != nil {
		future := n.raftNode.Shutdown()
		_ = future.Error()
	}
	if n.db != nil {
		return n.db.Close()
	}
	return nil
}

// waitLeader 等待集群选出 leader，返回本节点是否为 leader。
func (n *Node) waitLeader(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n.raftNode.State() == raft.Leader {
			return true, nil
		}
		if addr, _ := n.raftNode.LeaderWithID(); addr != "" {
			return false, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false, errors.New("timed out waiting for raft leader")
}

// bootstrapState 由 leader 登记自身地址，并在账本未初始化时提交创世命令。
func (n *Node) bootstrapState() error {
	isLeader, err := n.waitLeader(leaderTimeout)
	if err != nil {
		return err
	}
	if !isLeader {
		return nil
	}
	if err := n.registerMember(n.self()); err != nil {
		return err
	}
	done, err := n.accountSvc.IsInitialized()
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	_, err = n.apply(raftCommand{
		Type:    commandGenesis,
		Genesis: &genesisCommand{Deployer: n.deployer, Supply: n.supply},
	})
	if errors.Is(err, types.ErrAlreadyInitialized) {
		return nil
	}
	return err
}

func (n *Node) self() types.Member {
	return types.Member{
		NodeID:      n.cfg.NodeID,
		RaftAddress: n.cfg.RaftBind,
		HTTPAddress: n.cfg.HTTPAdvertise,
	}
}

// registerMember 通过 Raft 复制成员地址，使每个节点都能把 leader 的 raft 地址换成 HTTP 地址。
func (n *Node) registerMember(m types.Member) error {
	_, err := n.apply(raftCommand{Type: commandMember, Member: &m})
	return err
}

// proposeTransaction 将交易序列化后提交给 Raft 日志，返回状态机执行结果。
func (n *Node) proposeTransaction(tx *types.Transaction) (*types.Receipt, error) {
	return n.apply(raftCommand{Type: commandTransaction, Transaction: tx})
}

func (n *Node) apply(cmd raftCommand) (*types.Receipt, error) {
	if n.raftNode == nil {
		return nil, errors.New("raft not initialized")
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	future := n.raftNode.Apply(payload, applyTimeout)
	if err := future.Error(); err != nil {
		return nil, err
	}
	res, ok := future.Response().(*applyResult)
	if !ok {
		return nil, fmt.Errorf("unexpected fsm response %T", future.Response())
	}
	return res.receipt, res.err
}

// joinCluster 尝试联系集群节点完成加入操作。
func (n *Node) joinCluster() error {
	if len(n.cfg.RaftPeers) == 0 {
		return errors.New("raft_peers required for join")
	}
	body, _ := json.Marshal(n.self())
	visited := map[string]bool{}
	queue := append([]string{}, n.cfg.RaftPeers...)
	client := &http.Client{Timeout: 5 * time.Second}
	for len(queue) > 0 {
		peer := queue[0]
		queue = queue[1:]
		if visited[peer] {
			continue
		}
		visited[peer] = true
		url := fmt.Sprintf("http://%s/raft/join", peer)
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("join request failed", zap.String("url", url), zap.Error(err))
			continue
		}
		if resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			n.logger.Info("joined raft cluster", zap.String("via", peer))
			return nil
		}
		leader := resp.Header.Get(api.HeaderRaftLeader)
		resp.Body.Close()
		if leader != "" && !visited[leader] {
			queue = append(queue, leader)
		}
	}
	return errors.New("failed to join raft cluster")
}

// handleJoinRequest 响应其它节点提交的 join 请求。
func (n *Node) handleJoinRequest(m types.Member) (string, error) {
	if leader, err := n.requireLeader(); err != nil {
		return leader, err
	}
	future := n.raftNode.AddVoter(raft.ServerID(m.NodeID), raft.ServerAddress(m.RaftAddress), 0, 0)
	if err := future.Error(); err != nil {
		return "", err
	}
	return "", n.registerMember(m)
}

// handleRemoveRequest 将节点移出集群。
func (n *Node) handleRemoveRequest(nodeID string) (string, error) {
	if leader, err := n.requireLeader(); err != nil {
		return leader, err
	}
	future := n.raftNode.RemoveServer(raft.ServerID(nodeID), 0, 0)
	if err := future.Error(); err != nil {
		return "", err
	}
	n.logger.Info("raft server removed", zap.String("node_id", nodeID))
	return "", nil
}

// requireLeader 非 leader 时返回 leader 的 HTTP 地址与 raft.ErrNotLeader。
func (n *Node) requireLeader() (string, error) {
	if n.raftNode == nil {
		return "", errors.New("raft not initialized")
	}
	if n.raftNode.State() == raft.Leader {
		return "", nil
	}
	leader, _ := n.raftNode.LeaderWithID()
	if leader == "" {
		return "", errors.New("no leader")
	}
	return n.leaderHTTPAddress(leader), raft.ErrNotLeader
}

// leaderHTTPAddress 未登记的 leader 返回空串，调用方只能换其它 peer 重试。
func (n *Node) leaderHTTPAddress(leader raft.ServerAddress) string {
	m, err := n.store.MemberByRaftAddress(string(leader))
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			n.logger.Warn("lookup leader member", zap.String("leader", string(leader)), zap.Error(err))
		}
		return ""
	}
	return m.HTTPAddress
}

// raftStatus 返回当前节点的 Raft 状态信息。
func (n *Node) raftStatus() map[string]interface{} {
	if n.raftNode == nil {
		return map[string]interface{}{"state": "not_initialized"}
	}
	stats := n.raftNode.Stats()
	leader, leaderID := n.raftNode.LeaderWithID()
	members, err := n.store.ListMembers()
	if err != nil {
		n.logger.Warn("list members", zap.Error(err))
	}
	return map[string]interface{}{
		"node_id":        n.cfg.NodeID,
		"state":          n.raftNode.State().String(),
		"leader":         string(leader),
		"leader_id":      string(leaderID),
		"leader_http":    n.leaderHTTPAddress(leader),
		"members":        members,
		"term":           stats["term"],
		"last_log_index": stats["last_log_index"],
		"applied_index":  stats["applied_index"],
	}
}

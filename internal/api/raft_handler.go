package api

import (
	"net/http"

	"permissioned_ledger_go/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeaderRaftLeader 非 leader 节点拒绝成员变更时，用它返回 leader 的 HTTP 地址。
const HeaderRaftLeader = "X-Raft-Leader"

type raftRemoveRequest struct {
	NodeID string `json:"node_id"`
}

func (s *Server) handleRaftJoin(c *gin.Context) {
	if s.joinFunc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "join unavailable"})
		return
	}
	var m types.Member
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err.Error())
		return
	}
	if m.NodeID == "" || m.RaftAddress == "" || m.HTTPAddress == "" {
		badRequest(c, "node_id, raft_address and http_address required")
		return
	}
	leader, err := s.joinFunc(m)
	if err != nil {
		s.rejectMembership(c, "join", m.NodeID, leader, err)
		return
	}
	s.logger.Info("raft voter added",
		zap.String("node_id", m.NodeID),
		zap.String("raft_address", m.RaftAddress),
		zap.String("http_address", m.HTTPAddress),
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRaftRemove(c *gin.Context) {
	if s.removeFunc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remove unavailable"})
		return
	}
	var req raftRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NodeID == "" {
		badRequest(c, "node_id required")
		return
	}
	leader, err := s.removeFunc(req.NodeID)
	if err != nil {
		s.rejectMembership(c, "remove", req.NodeID, leader, err)
		return
	}
	s.logger.Info("raft server removed", zap.String("node_id", req.NodeID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// rejectMembership 成员变更失败统一返回 503；知道 leader 时带上重定向头，调用方据此重试。
func (s *Server) rejectMembership(c *gin.Context, op, nodeID, leader string, err error) {
	if leader != "" {
		c.Header(HeaderRaftLeader, leader)
	}
	s.logger.Warn("raft membership change rejected",
		zap.String("op", op),
		zap.String("node_id", nodeID),
		zap.String("leader", leader),
		zap.Error(err),
	)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "leader": leader})
}

func (s *Server) handleRaftStatus(c *gin.Context) {
	if s.statusFunc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, s.statusFunc())
}

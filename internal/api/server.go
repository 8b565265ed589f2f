package api

import (
	"net/http"
	"time"

	"permissioned_ledger_go/internal/service"
	"permissioned_ledger_go/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitFunc 提交一笔已签名交易，返回落地后的回执。单机时直接调用 TransactionService，集群时经 Raft 复制。
type SubmitFunc func(tx *types.Transaction) (*types.Receipt, error)

// JoinFunc/RemoveFunc 失败时返回 leader 的 HTTP 地址（若已知）。
type JoinFunc func(m types.Member) (string, error)
type RemoveFunc func(nodeID string) (string, error)
type StatusFunc func() map[string]interface{}

// Server 使用 Gin 暴露账户、交易、审计与集群接口。
type Server struct {
	engine     *gin.Engine
	accountSvc *service.AccountService
	auditSvc   *service.AuditService
	submit     SubmitFunc
	joinFunc   JoinFunc
	removeFunc RemoveFunc
	statusFunc StatusFunc
	logger     *zap.Logger
}

type Option func(*Server)

func WithRaft(join JoinFunc, remove RemoveFunc, status StatusFunc) Option {
	return func(s *Server) {
		s.joinFunc = join
		s.removeFunc = remove
		s.statusFunc = status
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(account *service.AccountService, audit *service.AuditService, submit SubmitFunc, opts ...Option) *Server {
	s := &Server{
		accountSvc: account,
		auditSvc:   audit,
		submit:     submit,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(requestID(), accessLog(s.logger), gin.Recovery())
	s.engine = engine
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/keys", s.handleGenerateKey)

	s.engine.GET("/accounts/:address", s.handleGetAccount)
	s.engine.GET("/balances/:address", s.handleBalance)
	s.engine.GET("/supply", s.handleSupply)
	s.engine.GET("/allowances/:owner/:spender", s.handleAllowance)
	s.engine.GET("/roles/:role/:address", s.handleHasRole)
	s.engine.GET("/whitelist/:address", s.handleWhitelisted)
	s.engine.GET("/frozen/:address", s.handleFrozen)
	s.engine.GET("/paused", s.handlePaused)

	s.engine.POST("/transactions/:op", s.handleTransaction)

	s.engine.GET("/audit", s.handleAuditList)
	s.engine.GET("/audit/verify", s.handleAuditVerify)
	s.engine.GET("/audit/:index", s.handleAuditEntry)
	s.engine.GET("/events", s.handleEvents)

	s.engine.POST("/raft/join", s.handleRaftJoin)
	s.engine.POST("/raft/remove", s.handleRaftRemove)
	s.engine.GET("/raft/status", s.handleRaftStatus)
}

// Handler 返回底层 http.Handler，便于嵌入或测试。
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) ListenAndServe(addr string) error {
	return s.engine.Run(addr)
}

const headerRequestID = "X-Request-ID"

// requestID 为每个请求分配 ID，调用方已带上时沿用。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("request_id", c.GetString(headerRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

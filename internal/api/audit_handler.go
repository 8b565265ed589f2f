package api

import (
	"fmt"
	"net/http"
	"strconv"

	"permissioned_ledger_go/internal/types"

	"github.com/gin-gonic/gin"
)

const maxListLimit = 1000

func (s *Server) handleAuditEntry(c *gin.Context) {
	idx, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid index: %v", err))
		return
	}
	entry, err := s.auditSvc.GetEntry(idx)
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := s.auditSvc.DecodeRecord(entry)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":      entry.Index,
		"prev_hash":  entry.PrevHash,
		"entry_hash": entry.EntryHash,
		"record":     rec,
	})
}

// handleAuditList 按索引分页列出审计条目，只返回链字段，记录内容用 /audit/:index 读取。
func (s *Server) handleAuditList(c *gin.Context) {
	from, limit, ok := pageParams(c)
	if !ok {
		return
	}
	entries, err := s.auditSvc.ListEntries(from, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"index":      e.Index,
			"prev_hash":  e.PrevHash,
			"entry_hash": e.EntryHash,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (s *Server) handleAuditVerify(c *gin.Context) {
	if err := s.auditSvc.VerifyChain(); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (s *Server) handleEvents(c *gin.Context) {
	from, limit, ok := pageParams(c)
	if !ok {
		return
	}
	events, err := s.auditSvc.ListEvents(from, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	last, err := s.auditSvc.LastEventSeq()
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "last_seq": last})
}

// pageParams 解析 from/limit 查询参数，limit 上限为 maxListLimit。
func pageParams(c *gin.Context) (uint64, int, bool) {
	from, err := strconv.ParseUint(c.DefaultQuery("from", "1"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid from: %v", err))
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return from, limit, true
}

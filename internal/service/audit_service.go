package service

import (
	"encoding/json"

	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/types"
)

// 封装审计链与事件日志的读取。写入由 TransactionService 在交易事务内完成。
type AuditService struct {
	store *store.Store
}

func NewAuditService(s *store.Store) *AuditService {
	return &AuditService{store: s}
}

// 按索引读取审计条目。
func (svc *AuditService) GetEntry(index uint64) (*types.Entry, error) {
	return svc.store.GetEntry(index)
}

// DecodeRecord 解析审计条目中的交易记录。
func (svc *AuditService) DecodeRecord(e *types.Entry) (*types.AuditRecord, error) {
	var rec types.AuditRecord
	if err := json.Unmarshal(e.Payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// 校验链式哈希完整性。
func (svc *AuditService) VerifyChain() error {
	return svc.store.VerifyChain()
}

func (svc *AuditService) ListEntries(from uint64, limit int) ([]*types.Entry, error) {
	return svc.store.ListEntries(from, limit)
}

// LastEventSeq 最新事件序号，便于客户端分页追赶。
func (svc *AuditService) LastEventSeq() (uint64, error) {
	return svc.store.LastEventSeq()
}

// ListEvents 按序号读取事件日志。
func (svc *AuditService) ListEvents(from uint64, limit int) ([]types.Event, error) {
	return svc.store.ListEvents(from, limit)
}

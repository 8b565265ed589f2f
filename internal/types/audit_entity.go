package types

import "github.com/ethereum/go-ethereum/common"

// Entry 审计链条目。Payload 为已落地交易及其事件的 JSON 编码。
type Entry struct {
	Index     uint64      `json:"index"`
	PrevHash  common.Hash `json:"prev_hash"`
	Payload   []byte      `json:"payload"`
	EntryHash common.Hash `json:"entry_hash"`
}

// AuditRecord 写入审计链的内容。
type AuditRecord struct {
	TxHash common.Hash `json:"tx_hash"`
	Tx     Transaction `json:"tx"`
	Events []Event     `json:"events"`
}

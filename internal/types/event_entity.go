package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type EventKind string

const (
	EventTransfer               EventKind = "Transfer"
	EventMultiTransferPrevented EventKind = "MultiTransferPrevented"
)

// Event 事件日志条目，Seq 由存储层在追加时分配。
// MultiTransferPrevented 中 From 为调用方，To 为被跳过的接收方。
type Event struct {
	Seq    uint64         `json:"seq"`
	Kind   EventKind      `json:"kind"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func TransferEvent(from, to common.Address, amount *uint256.Int) Event {
	return Event{Kind: EventTransfer, From: from, To: to, Amount: new(uint256.Int).Set(amount)}
}

func MultiTransferPreventedEvent(caller, recipient common.Address, amount *uint256.Int) Event {
	return Event{Kind: EventMultiTransferPrevented, From: caller, To: recipient, Amount: new(uint256.Int).Set(amount)}
}

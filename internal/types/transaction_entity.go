package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// 表示交易类型。
type TxType int

const (
	TxTypeTransfer TxType = iota + 1
	TxTypeTransferFrom
	TxTypeApprove
	TxTypeIncreaseAllowance
	TxTypeDecreaseAllowance
	TxTypeBurn
	TxTypeMultiTransfer
	TxTypeGrantRole
	TxTypeRevokeRole
	TxTypeWhitelistAdd
	TxTypeWhitelistRemove
	TxTypeFreeze
	TxTypeUnfreeze
	TxTypePause
	TxTypeUnpause
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:          "transfer",
	TxTypeTransferFrom:      "transfer-from",
	TxTypeApprove:           "approve",
	TxTypeIncreaseAllowance: "increase-allowance",
	TxTypeDecreaseAllowance: "decrease-allowance",
	TxTypeBurn:              "burn",
	TxTypeMultiTransfer:     "multi-transfer",
	TxTypeGrantRole:         "grant-role",
	TxTypeRevokeRole:        "revoke-role",
	TxTypeWhitelistAdd:      "whitelist-add",
	TxTypeWhitelistRemove:   "whitelist-remove",
	TxTypeFreeze:            "freeze",
	TxTypeUnfreeze:          "unfreeze",
	TxTypePause:             "pause",
	TxTypeUnpause:           "unpause",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TxType(%d)", int(t))
}

// ParseTxType 将接口中的操作名转换为交易类型。
func ParseTxType(name string) (TxType, error) {
	for t, n := range txTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownTxType, name)
}

// 交易结构。不同类型只使用其中的部分参数：
//   - Target: burn、角色、白名单、冻结的目标账户
//   - Spender: approve 系列
//   - From/To: transfer（To）与 transferFrom（From、To）
//   - Recipients/Amounts: multiTransfer
type Transaction struct {
	Type       TxType           `json:"type"`
	Sender     common.Address   `json:"sender"`
	Nonce      uint64           `json:"nonce"`
	Target     common.Address   `json:"target,omitempty"`
	Spender    common.Address   `json:"spender,omitempty"`
	From       common.Address   `json:"from,omitempty"`
	To         common.Address   `json:"to,omitempty"`
	Amount     *uint256.Int     `json:"amount,omitempty"`
	Role       Role             `json:"role,omitempty"`
	Recipients []common.Address `json:"recipients,omitempty"`
	Amounts    []*uint256.Int   `json:"amounts,omitempty"`
	Signature  []byte           `json:"signature,omitempty"`
}

type LegStatus string

const (
	LegTransferred LegStatus = "transferred"
	LegSkipped     LegStatus = "skipped"
)

// LegOutcome 批量转账中单笔的执行结果。
type LegOutcome struct {
	Recipient common.Address `json:"recipient"`
	Amount    *uint256.Int   `json:"amount"`
	Status    LegStatus      `json:"status"`
}

// Receipt 交易成功落地后的回执。
type Receipt struct {
	TxHash     common.Hash    `json:"tx_hash"`
	Type       TxType         `json:"type"`
	Sender     common.Address `json:"sender"`
	Nonce      uint64         `json:"nonce"`
	AuditIndex uint64         `json:"audit_index"`
	Events     []Event        `json:"events"`
	Legs       []LegOutcome   `json:"legs,omitempty"`
}

func (t TxType) MarshalText() ([]byte, error) {
	if _, ok := txTypeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *TxType) UnmarshalText(b []byte) error {
	parsed, err := ParseTxType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package txVerify

import (
	"crypto/ecdsa"
	"fmt"

	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/types"
	"permissioned_ledger_go/pkg/crypto"
)

// DefaultMaxBatch 单次 multiTransfer 允许的最大笔数，限制单个 badger 事务的大小。
const DefaultMaxBatch = 512

type Validator struct {
	maxBatch int
}

func NewValidator(maxBatch int) *Validator {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Validator{maxBatch: maxBatch}
}

// 验证交易：结构、签名、nonce。业务规则由 ledger 负责。
func (v *Validator) ValidateTransaction(st ledger.State, tx types.Transaction) error {
	if err := v.ValidateShape(tx); err != nil {
		return err
	}
	if err := v.VerifySignature(tx); err != nil {
		return err
	}
	acc, err := st.Account(tx.Sender)
	if err != nil {
		return err
	}
	if tx.Nonce != acc.Nonce+1 {
		return fmt.Errorf("%w: expected %d, got %d", types.ErrInvalidNonce, acc.Nonce+1, tx.Nonce)
	}
	return nil
}

// ValidateShape 检查交易类型所需的参数是否齐全，不访问状态。
func (v *Validator) ValidateShape(tx types.Transaction) error {
	if types.IsZeroAddress(tx.Sender) {
		return fmt.Errorf("%w: zero sender", types.ErrInvalidAddress)
	}
	switch tx.Type {
	case types.TxTypeTransfer, types.TxTypeTransferFrom,
		types.TxTypeApprove, types.TxTypeIncreaseAllowance, types.TxTypeDecreaseAllowance,
		types.TxTypeBurn:
		if tx.Amount == nil {
			return fmt.Errorf("%w: %s: amount required", types.ErrInvalidTransaction, tx.Type)
		}
	case types.TxTypeMultiTransfer:
		if len(tx.Recipients) > v.maxBatch || len(tx.Amounts) > v.maxBatch {
			return fmt.Errorf("%w: %s: batch larger than %d legs", types.ErrInvalidTransaction, tx.Type, v.maxBatch)
		}
		for i, a := range tx.Amounts {
			if a == nil {
				return fmt.Errorf("%w: %s: amount #%d required", types.ErrInvalidTransaction, tx.Type, i)
			}
		}
	case types.TxTypeGrantRole, types.TxTypeRevokeRole:
		if !tx.Role.Valid() {
			return fmt.Errorf("%w: %s: unknown role %d", types.ErrInvalidTransaction, tx.Type, uint8(tx.Role))
		}
	case types.TxTypeWhitelistAdd, types.TxTypeWhitelistRemove,
		types.TxTypeFreeze, types.TxTypeUnfreeze,
		types.TxTypePause, types.TxTypeUnpause:
	default:
		return fmt.Errorf("%w: %d", types.ErrUnknownTxType, tx.Type)
	}
	return nil
}

// 验证签名：恢复出的地址必须与 Sender 一致
func (v *Validator) VerifySignature(tx types.Transaction) error {
	if len(tx.Signature) == 0 {
		return fmt.Errorf("%w: missing", types.ErrInvalidSignature)
	}
	hash := TxHash(tx)
	if !crypto.VerifySignature(tx.Sender, hash.Bytes(), tx.Signature) {
		return fmt.Errorf("%w: not signed by sender %s", types.ErrInvalidSignature, tx.Sender.Hex())
	}
	return nil
}

// SignTransaction 用私钥签名交易，写入 Signature 字段。
func SignTransaction(tx *types.Transaction, priv *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(priv, TxHash(*tx).Bytes())
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

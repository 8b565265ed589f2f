package service

import (
	"encoding/json"
	"fmt"

	"permissioned_ledger_go/internal/ledger"
	"permissioned_ledger_go/internal/store"
	"permissioned_ledger_go/internal/txVerify"
	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// 负责交易的校验、执行、审计，全部在同一个 badger 事务内完成。
type TransactionService struct {
	store     *store.Store
	token     *ledger.Token
	validator *txVerify.Validator
	logger    *zap.Logger
}

func NewTransactionService(s *store.Store, token *ledger.Token, v *txVerify.Validator, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		store:     s,
		token:     token,
		validator: v,
		logger:    logger,
	}
}

// Genesis 在空账本上初始化部署者与初始供应量；已初始化时返回 ErrAlreadyInitialized。
func (svc *TransactionService) Genesis(deployer common.Address, supply *uint256.Int) error {
	err := svc.store.Update(func(st *store.TxnState) error {
		return svc.token.Genesis(st, deployer, supply)
	})
	if err != nil {
		return err
	}
	svc.logger.Info("ledger genesis",
		zap.String("deployer", deployer.Hex()),
		zap.String("supply", supply.Dec()),
	)
	return nil
}

// Apply 先校验签名与 nonce，再执行业务并写审计链；任一步失败整个事务被丢弃。
func (svc *TransactionService) Apply(tx types.Transaction) (*types.Receipt, error) {
	hash := txVerify.TxHash(tx)
	var receipt *types.Receipt

	err := svc.store.Update(func(st *store.TxnState) error {
		if svc.validator != nil {
			if err := svc.validator.ValidateTransaction(st, tx); err != nil {
				return err
			}
		}

		legs, err := svc.token.Execute(st, &tx)
		if err != nil {
			return err
		}

		sender, err := st.Account(tx.Sender)
		if err != nil {
			return err
		}
		sender.Nonce++
		if err := st.PutAccount(sender); err != nil {
			return err
		}

		events := st.Emitted()
		payload, err := json.Marshal(types.AuditRecord{TxHash: hash, Tx: tx, Events: events})
		if err != nil {
			return err
		}
		entry, err := store.AppendTxn(st.Txn(), payload)
		if err != nil {
			return fmt.Errorf("append audit: %w", err)
		}

		receipt = &types.Receipt{
			TxHash:     hash,
			Type:       tx.Type,
			Sender:     tx.Sender,
			Nonce:      tx.Nonce,
			AuditIndex: entry.Index,
			Events:     events,
			Legs:       legs,
		}
		return nil
	})

	fields := []zap.Field{
		zap.String("tx_hash", hash.Hex()),
		zap.Stringer("type", tx.Type),
		zap.String("sender", tx.Sender.Hex()),
		zap.Uint64("nonce", tx.Nonce),
	}
	if err != nil {
		svc.logger.Warn("transaction rejected", append(fields, zap.String("code", types.ErrorCode(err)), zap.Error(err))...)
		return nil, err
	}
	svc.logger.Info("transaction applied", append(fields,
		zap.Uint64("audit_index", receipt.AuditIndex),
		zap.Int("events", len(receipt.Events)),
	)...)
	return receipt, nil
}

package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"permissioned_ledger_go/internal/txVerify"
	"permissioned_ledger_go/internal/types"
	"permissioned_ledger_go/pkg/crypto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
)

// txRequest 交易请求。signature 与 private_key 二选一；后者由服务端代签，仅用于开发环境。
// 使用 private_key 且 nonce 为 0 时，自动取账户当前 nonce+1。
type txRequest struct {
	Sender     string   `json:"sender"`
	Nonce      uint64   `json:"nonce"`
	Target     string   `json:"target"`
	Spender    string   `json:"spender"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Amount     string   `json:"amount"`
	Role       string   `json:"role"`
	Recipients []string `json:"recipients"`
	Amounts    []string `json:"amounts"`
	Signature  string   `json:"signature"`
	PrivateKey string   `json:"private_key"`
}

func (s *Server) handleTransaction(c *gin.Context) {
	txType, err := types.ParseTxType(c.Param("op"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req txRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Signature == "" && req.PrivateKey == "" {
		badRequest(c, "signature or private_key required")
		return
	}

	tx, err := buildTransaction(txType, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	if req.Signature != "" {
		sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", types.ErrInvalidSignature, err))
			return
		}
		tx.Signature = sig
	} else {
		priv, err := crypto.HexToPrivateKey(req.PrivateKey)
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid private_key: %v", err))
			return
		}
		if req.Sender == "" {
			tx.Sender = crypto.AddressOf(priv)
		}
		if tx.Nonce == 0 {
			acc, err := s.accountSvc.GetAccount(tx.Sender)
			if err != nil {
				writeError(c, err)
				return
			}
			tx.Nonce = acc.Nonce + 1
		}
		if err := txVerify.SignTransaction(tx, priv); err != nil {
			writeError(c, err)
			return
		}
	}

	receipt, err := s.submit(tx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// buildTransaction 只做格式解析，参数是否齐全由 Validator 检查。
func buildTransaction(txType types.TxType, req *txRequest) (*types.Transaction, error) {
	tx := &types.Transaction{Type: txType, Nonce: req.Nonce}

	var err error
	fields := []struct {
		raw string
		dst *common.Address
	}{
		{req.Sender, &tx.Sender},
		{req.Target, &tx.Target},
		{req.Spender, &tx.Spender},
		{req.From, &tx.From},
		{req.To, &tx.To},
	}
	for _, f := range fields {
		addr, err := parseAddress(f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = addr
	}

	if req.Amount != "" {
		if tx.Amount, err = types.ParseAmount(req.Amount); err != nil {
			return nil, wrapInput(err)
		}
	}
	if req.Role != "" {
		if tx.Role, err = types.ParseRole(req.Role); err != nil {
			return nil, wrapInput(err)
		}
	}
	if len(req.Recipients) > 0 || len(req.Amounts) > 0 {
		for _, r := range req.Recipients {
			addr, err := parseAddress(r)
			if err != nil {
				return nil, err
			}
			tx.Recipients = append(tx.Recipients, addr)
		}
		tx.Amounts = make([]*uint256.Int, 0, len(req.Amounts))
		for _, a := range req.Amounts {
			v, err := types.ParseAmount(a)
			if err != nil {
				return nil, wrapInput(err)
			}
			tx.Amounts = append(tx.Amounts, v)
		}
	}
	return tx, nil
}

// wrapInput 非账本错误的格式问题统一归为 InvalidTransaction。
func wrapInput(err error) error {
	if types.ErrorCode(err) != "Internal" {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrInvalidTransaction, err)
}

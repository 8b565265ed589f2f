package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrCallerFrozen          = errors.New("caller is frozen")
	ErrRecipientFrozen       = errors.New("recipient is frozen")
	ErrContractPaused        = errors.New("contract is paused")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrLengthMismatch        = errors.New("recipients and amounts length mismatch")
	ErrAmountOverflow        = errors.New("amount overflow")

	ErrRedundantMembership = errors.New("membership unchanged")
	ErrAlreadyInitialized  = errors.New("ledger already initialized")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrUnknownTxType       = errors.New("unknown transaction type")
	ErrInvalidTransaction  = errors.New("invalid transaction")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidAddress, "InvalidAddress"},
	{ErrCallerFrozen, "CallerFrozen"},
	{ErrRecipientFrozen, "RecipientFrozen"},
	{ErrContractPaused, "ContractPaused"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientAllowance, "InsufficientAllowance"},
	{ErrLengthMismatch, "LengthMismatch"},
	{ErrAmountOverflow, "AmountOverflow"},
	{ErrRedundantMembership, "RedundantMembership"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrInvalidNonce, "InvalidNonce"},
	{ErrInvalidSignature, "InvalidSignature"},
	{ErrUnknownTxType, "UnknownTxType"},
	{ErrInvalidTransaction, "InvalidTransaction"},
}

// ErrorCode 返回错误对应的稳定名称，未知错误返回 Internal。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}

// ParseAmount 解析十进制金额，超出 256 位时返回 ErrAmountOverflow。
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, s)
		}
		return nil, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	return v, nil
}

package api

import (
	"errors"
	"net/http"

	"permissioned_ledger_go/internal/types"

	"github.com/dgraph-io/badger/v3"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/raft"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{types.ErrUnauthorized, http.StatusForbidden},
	{types.ErrCallerFrozen, http.StatusForbidden},
	{types.ErrRecipientFrozen, http.StatusForbidden},
	{types.ErrContractPaused, http.StatusConflict},
	{types.ErrInvalidSignature, http.StatusUnauthorized},
	{types.ErrInvalidAddress, http.StatusBadRequest},
	{types.ErrLengthMismatch, http.StatusBadRequest},
	{types.ErrAmountOverflow, http.StatusBadRequest},
	{types.ErrInvalidNonce, http.StatusBadRequest},
	{types.ErrUnknownTxType, http.StatusBadRequest},
	{types.ErrInvalidTransaction, http.StatusBadRequest},
	{types.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{types.ErrInsufficientAllowance, http.StatusUnprocessableEntity},
	{types.ErrRedundantMembership, http.StatusUnprocessableEntity},
	{badger.ErrKeyNotFound, http.StatusNotFound},
	{raft.ErrNotLeader, http.StatusServiceUnavailable},
	{raft.ErrLeadershipLost, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError 统一错误响应：{"error": msg, "code": name}。
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": types.ErrorCode(types.ErrInvalidTransaction)})
}

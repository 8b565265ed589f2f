package api

import (
	"fmt"
	"net/http"

	"permissioned_ledger_go/internal/types"
	"permissioned_ledger_go/pkg/crypto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// parseAddress 空串视为零地址，由账本规则拒绝。
func parseAddress(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", types.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func addressParam(c *gin.Context, name string) (common.Address, bool) {
	addr, err := parseAddress(c.Param(name))
	if err != nil {
		writeError(c, err)
		return common.Address{}, false
	}
	return addr, true
}

func (s *Server) handleGenerateKey(c *gin.Context) {
	priv, addr, err := crypto.GenerateKeyPair()
	if err != nil {
		writeError(c, err)
		return
	}
	privHex, err := crypto.PrivateKeyToHex(priv)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"address":     addr,
		"private_key": privHex,
	})
}

func (s *Server) handleGetAccount(c *gin.Context) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	acc, err := s.accountSvc.GetAccount(addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) handleBalance(c *gin.Context) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	bal, err := s.accountSvc.BalanceOf(addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "balance": bal})
}

func (s *Server) handleSupply(c *gin.Context) {
	supply, err := s.accountSvc.TotalSupply()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_supply": supply})
}

func (s *Server) handleAllowance(c *gin.Context) {
	owner, ok := addressParam(c, "owner")
	if !ok {
		return
	}
	spender, ok := addressParam(c, "spender")
	if !ok {
		return
	}
	v, err := s.accountSvc.Allowance(owner, spender)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner, "spender": spender, "allowance": v})
}

func (s *Server) handleHasRole(c *gin.Context) {
	role, err := types.ParseRole(c.Param("role"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	has, err := s.accountSvc.HasRole(role.ID(), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role.String(), "role_id": role.ID(), "address": addr, "has_role": has})
}

func (s *Server) handleWhitelisted(c *gin.Context) {
	s.membership(c, "whitelisted", s.accountSvc.IsWhitelisted)
}

func (s *Server) handleFrozen(c *gin.Context) {
	s.membership(c, "frozen", s.accountSvc.IsFrozen)
}

func (s *Server) membership(c *gin.Context, field string, check func(common.Address) (bool, error)) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	member, err := check(addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, field: member})
}

func (s *Server) handlePaused(c *gin.Context) {
	paused, err := s.accountSvc.IsPaused()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": paused})
}

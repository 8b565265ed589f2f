package txVerify

import (
	"bytes"
	"encoding/binary"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// 生成交易哈希（不包含签名字段，避免循环依赖）
func TxHash(tx types.Transaction) common.Hash {
	res := new(bytes.Buffer)
	_ = binary.Write(res, binary.BigEndian, int32(tx.Type))
	res.Write(tx.Sender.Bytes())
	_ = binary.Write(res, binary.BigEndian, tx.Nonce)
	res.Write(tx.Target.Bytes())
	res.Write(tx.Spender.Bytes())
	res.Write(tx.From.Bytes())
	res.Write(tx.To.Bytes())
	writeAmount(res, tx.Amount)
	res.WriteByte(byte(tx.Role))

	_ = binary.Write(res, binary.BigEndian, uint32(len(tx.Recipients)))
	for _, r := range tx.Recipients {
		res.Write(r.Bytes())
	}
	_ = binary.Write(res, binary.BigEndian, uint32(len(tx.Amounts)))
	for _, a := range tx.Amounts {
		writeAmount(res, a)
	}

	return crypto.Keccak256Hash(res.Bytes())
}

func writeAmount(buf *bytes.Buffer, v *uint256.Int) {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	buf.Write(b[:])
}

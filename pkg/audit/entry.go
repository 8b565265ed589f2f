package audit

import (
	"encoding/binary"
	"errors"

	"permissioned_ledger_go/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const headerLen = 8 + common.HashLength + common.HashLength + 4

// 序列化Entry：index(8) | prevHash(32) | entryHash(32) | len(4) | payload
func EncodeEntry(e *types.Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil entry")
	}
	if uint64(len(e.Payload)) > uint64(^uint32(0)) {
		return nil, errors.New("payload too large")
	}

	out := make([]byte, 0, headerLen+len(e.Payload))

	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], e.Index)
	out = append(out, b8[:]...)

	out = append(out, e.PrevHash.Bytes()...)
	out = append(out, e.EntryHash.Bytes()...)

	var b4 [4]byte
	binary.LittleEndian.PutUint32(b4[:], uint32(len(e.Payload)))
	out = append(out, b4[:]...)

	out = append(out, e.Payload...)
	return out, nil
}

// 反序列化Entry
func DecodeEntry(b []byte) (*types.Entry, error) {
	if len(b) < headerLen {
		return nil, errors.New("invalid entry bytes: too short")
	}

	e := &types.Entry{}
	e.Index = binary.LittleEndian.Uint64(b[:8])
	e.PrevHash = common.BytesToHash(b[8 : 8+common.HashLength])
	e.EntryHash = common.BytesToHash(b[8+common.HashLength : 8+2*common.HashLength])

	n := binary.LittleEndian.Uint32(b[headerLen-4 : headerLen])
	if len(b) != headerLen+int(n) {
		return nil, errors.New("invalid entry bytes: length mismatch")
	}
	if n > 0 {
		e.Payload = make([]byte, n)
		copy(e.Payload, b[headerLen:])
	}
	return e, nil
}

// 生成Entry的Hash：keccak256(index || prevHash || keccak256(payload))
func AuditHash(index uint64, prev common.Hash, payload []byte) common.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], index)
	return crypto.Keccak256Hash(buf[:], prev.Bytes(), crypto.Keccak256(payload))
}

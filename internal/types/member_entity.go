package types

// Member 集群成员地址。RaftAddress 用于复制，HTTPAddress 用于把客户端与 join 请求转给 leader。
type Member struct {
	NodeID      string `json:"node_id"`
	RaftAddress string `json:"raft_address"`
	HTTPAddress string `json:"http_address"`
}

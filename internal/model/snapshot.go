package model

// SnapshotRecord is one JSONL line of a materialized snapshot. Exactly one
// of Pair or Token is set.
type SnapshotRecord struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	TakenAt     string `json:"taken_at"`
	Pair        *Pair  `json:"pair,omitempty"`
	Token       *Token `json:"token,omitempty"`
}

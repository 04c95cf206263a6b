package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Kind is the event recorded by a block.
type Kind string

const (
	KindGenesis Kind = "genesis"
	KindProject Kind = "project"
	KindVote    Kind = "vote"
)

// genesisPrevHash marks the first block of a chain.
const genesisPrevHash = "0"

// Block is one entry of the chain.
type Block struct {
	Index      int64  `json:"index"`
	Timestamp  int64  `json:"timestamp"`
	PrevHash   string `json:"prev_hash"`
	Hash       string `json:"hash"`
	Kind       Kind   `json:"kind"`
	ProjectRef string `json:"project_ref,omitempty"`
	VoteHash   string `json:"vote_hash,omitempty"`
	Voter      string `json:"voter,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Ref is the external reference for the block.
func (b Block) Ref() string {
	return "0x" + b.Hash
}

// computeHash hashes every field except Hash.
func (b Block) computeHash() string {
	b.Hash = ""
	data, _ := json.Marshal(b)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

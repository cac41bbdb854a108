package protocol

// Blockchain identifies a supported chain family.
type Blockchain string

const (
	EOSIO    Blockchain = "eos"
	Ethereum Blockchain = "eth"
	Tron     Blockchain = "trx"
	Bitcoin  Blockchain = "btc"
)

// Blockchains lists every chain identifier known to the vault.
func Blockchains() []Blockchain {
	return []Blockchain{EOSIO, Ethereum, Tron, Bitcoin}
}

func (b Blockchain) String() string {
	return string(b)
}

// Network describes the target of a signing request. Only Blockchain is
// interpreted by the vault; the rest is forwarded to hardware signers.
type Network struct {
	Name       string     `json:"name,omitempty"`
	Blockchain Blockchain `json:"blockchain"`
	ChainID    string     `json:"chainId,omitempty"`
	Host       string     `json:"host,omitempty"`
	Port       int        `json:"port,omitempty"`
}

package solana

// TransactionDetail is the part of a fetched transaction the pipeline reads.
// It is independent of the encoding the node answered with.
type TransactionDetail struct {
	// BlockTime is the Unix time of the block, nil when the node does not know it.
	BlockTime *int64

	// ParsedAccountKeys is set when the message came back jsonParsed.
	ParsedAccountKeys []string

	// RawAccountKeys is set when the message had to be decoded from the raw encoding.
	RawAccountKeys []string

	Meta *TransactionMeta
}

// TransactionMeta carries the lamport balances before and after execution,
// indexed like the message account keys.
type TransactionMeta struct {
	PreBalances  []uint64
	PostBalances []uint64
}

// AccountKeys returns the parsed keys when present, otherwise the raw keys.
func (d *TransactionDetail) AccountKeys() []string {
	if d.ParsedAccountKeys != nil {
		return d.ParsedAccountKeys
	}
	return d.RawAccountKeys
}

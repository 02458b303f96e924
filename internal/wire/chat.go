package wire

// PairKey derives the deterministic, order-independent room identifier for
// a two-party conversation.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

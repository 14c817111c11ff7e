package mixnet

// DeliverySink consumes envelopes that have exited the last cascade stage.
// Implementations push the still-encrypted payload to the addressed
// recipient's live channel. The sink is called from an asynchronous delivery
// path after the envelope's release delay has elapsed; it is assumed to be
// non-blocking or tolerant of being called from that path.
type DeliverySink interface {
	// DeliverEncrypted hands one terminal envelope to the recipient.
	// mixed is false when the envelope's provenance does not cover every
	// configured stage; delivery still proceeds in that case, the flag
	// exists for observability.
	DeliverEncrypted(recipientID string, kind MessageKind, ciphertext []byte, messageID string, deliveredAtMs int64, mixed bool)
}

// Ticker is the single processing operation the tick driver invokes.
// Cascade implements it.
type Ticker interface {
	Tick()
}

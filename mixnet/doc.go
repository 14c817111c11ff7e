// Package mixnet implements an anonymous message-mixing cascade: an ordered
// chain of relay stages that pool pre-encrypted envelopes, release them only
// in batches of a configured minimum size, randomly reorder each batch, and
// stamp a randomized release delay before handing fully-traversed envelopes
// to a delivery sink.
//
// # Architecture
//
// The cascade operates through three cooperating pieces:
//
//  1. RelayStage: one anonymity-set hop. It owns a FIFO pool of envelopes
//     and releases a uniformly permuted, delay-stamped batch only once the
//     pool reaches the stage's batch threshold.
//
//  2. Cascade: owns the ordered, fixed list of relay stages. A single Tick
//     drains stage 0 and walks the released batch through every subsequent
//     stage; only envelopes that clear the whole chain within one tick are
//     delivered. A tick that stalls at an intermediate stage parks the
//     in-flight envelopes in that stage's pool for a later tick.
//
//  3. TickDriver: the external periodic loop that invokes Tick on a fixed
//     cadence. The cascade has no timer of its own.
//
// Each envelope records its traversal in a provenance trail. On delivery the
// cascade computes a fully-mixed verdict: the provenance must equal the full
// ordered list of configured stage names. A mismatch is surfaced to the sink
// as mixed=false rather than blocking or discarding the message.
//
// The mixing decorrelates submission order and time from delivery order and
// time. It provides no cryptographic guarantees: payloads are opaque
// ciphertext produced and consumed outside this package, and the cascade
// never inspects them.
//
// # Known limitations
//
// Stage pools are unbounded; if batches rarely fill, memory grows with
// traffic. There is no timeout-driven flush: an envelope that never
// accumulates enough siblings at some stage waits indefinitely. Envelopes
// parked mid-chain are re-batched with whatever arrives later, which can
// shrink the effective anonymity set for stragglers below the configured
// threshold.
package mixnet

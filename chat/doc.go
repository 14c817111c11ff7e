// Package chat implements the room service that sits on top of the mixing
// cascade: a single room with a capped user directory, a public key
// directory, end-to-end encrypted group and private messages routed through
// the cascade, live delivery over websockets, polls, and a delivery journal.
//
// The service never inspects message ciphertext. Clients encrypt for their
// recipients before submission and the server only learns routing metadata
// (sender, recipient, kind). Group and private messages travel through the
// cascade and surface via the DeliverySink callback, where they are
// journaled and pushed to connected clients. Polls and directory updates
// are plain control traffic and bypass the cascade.
package chat

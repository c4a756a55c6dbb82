// Package mailbox provides channel transports for the merge protocol.
//
// Ownership boundary:
// - in-memory pair endpoints for tests and single-process runs
// - single-slot file dropboxes for cross-process runs
// - binary frame codec over byte streams
//
// Every transport preserves the channel contract the protocol assumes:
// delivery in send order, no loss, no duplication.
package mailbox

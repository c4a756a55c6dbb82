// Package protocol owns the merge wire contract.
//
// Ownership boundary:
// - message envelope and payload shape rules
// - line-delimited JSON codec
// - protocol error taxonomy
package protocol

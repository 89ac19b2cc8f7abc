// Package engine implements the application automation engine: the quota
// ledger guarding free-application credits, the executor that drives one job
// posting through the apply state machine, and the batch runner that
// sequences executions for a user session.
//
// Per-posting failures never escape the executor boundary; they become
// outcome values on the recorded attempt. Only resource-acquisition failures
// outside any specific posting (profile store unreachable, browser engine
// unavailable) abort a batch.
package engine

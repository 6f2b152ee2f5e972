// Package engine is the single entry point for event handling.
//
// The engine receives one normalized platform event at a time and returns
// a Plan: the ordered side-effecting actions plus any non-fatal reports.
// It performs no platform I/O itself. Execution belongs to the caller.
//
// ARCHITECTURE:
//
// Handle() is the facade. It loads the guild's stored configuration,
// builds a request-scoped template resolver, and dispatches on the event
// kind: COMMAND goes to the router first and falls through to
// COMMAND-trigger automations for unknown names; every other kind runs
// its workflow step and then its matching automations.
//
// Serialization:
// A per-guild mutex serializes Handle() for events of the same guild, so
// two concurrent approvals (or an approve racing a reload) cannot
// double-grant roles or lose a rejection. Events of different guilds
// proceed concurrently.
//
// Ordering:
// Automations are evaluated in priority order, ties broken by id, and
// each automation's steps expand in sequence order into one flat action
// list. No interleaving across automations, no randomness.
//
// The Serve loop pulls events from a FIFO queue and hands each plan to
// the caller's executor. On failure it logs with full event context and
// continues; retries are the operator's call, never the loop's.
package engine

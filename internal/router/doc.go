// Package router dispatches inbound chat events and drives the vending
// flow: trigger command, product selection, URL form, order placement.
//
// The router is platform-agnostic. The chat adapter translates gateway
// payloads into the Event union and hands each event in with an
// Interaction bound to its origin; all replies flow back through that
// handle.
//
// # Flow
//
//	!vending            -> catalog listing with one button per product
//	button press        -> URL form tagged with a fresh token
//	form submission     -> provisional ack, async order call, final reply
//
// Selections and submissions are correlated through opaque uuid tokens
// held in in-process maps. A token is consumed the first time it matches;
// stale, foreign, or replayed tokens are ignored without a reply. Nothing
// survives a restart.
//
// Order-placing tasks run as independent goroutines so a pending order
// never blocks new commands. Each task finalizes its acknowledgment
// exactly once, even if it panics.
package router

// Package session owns recording session identity and lifecycle. A
// controller wires the chunk recorder into the analysis queue, maintains the
// bounded emotion timeline, and relays results to the presentation layer,
// enforcing that at most one session is active at a time.
package session

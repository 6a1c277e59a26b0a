// Package analysis submits encoded audio chunks to the remote emotion
// inference backend and serializes them through a single-consumer queue that
// enforces the backend's rate limits. At most one request is ever in flight;
// chunks are processed in strict FIFO order and never retried.
package analysis

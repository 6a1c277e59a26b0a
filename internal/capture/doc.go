// Package capture owns the microphone device for the lifetime of a recording
// session and slices the continuous input into fixed-duration encoded chunks.
// Chunk boundaries are produced by stopping and restarting the underlying
// device on an interval timer; voice processing such as echo cancellation and
// automatic gain is delegated to the platform device layer.
package capture

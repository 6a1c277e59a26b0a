// Package server implements the HTTP API for the emotion audio service.
// It exposes session start/stop control, the emotion timeline, health and
// configuration views, and the Prometheus metrics endpoint.
package server

// Package timeouts defines shared timeout constants used by workspace servers
// and clients.
package timeouts

import "time"

// GRPCDial caps the wait time when the MCP bridge dials the workspace server.
const GRPCDial = 2 * time.Second

// GRPCRequest caps a single bridged bindable call.
const GRPCRequest = 5 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

package main

import (
	"log"
	"net"
	"strconv"

	"go-deep-research/internal/sandbox"
	"go-deep-research/internal/types"
)

// splitHostPort parses RESEARCH_QDRANT_URL's host:port into the pair
// vectorstore.NewStore expects, defaulting to Qdrant's standard gRPC port
// when none is given.
func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6334
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("[main] invalid qdrant port %q, defaulting to 6334", portStr)
		return host, 6334
	}
	return host, port
}

func newTokenTracker(budget uint64) *types.TokenTracker {
	if budget == 0 {
		budget = 1_000_000
	}
	return types.NewTokenTracker(budget)
}

func defaultSandboxLimits() sandbox.Limits {
	return sandbox.DefaultLimits()
}

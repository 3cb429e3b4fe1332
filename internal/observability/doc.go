// Package observability provides logging, metrics, and context helpers for
// the research graph converter and server.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for conversions, queries, and HTTP traffic
//   - Context helpers for propagating request and run identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithComponent(logger, "converter")
//	logger.Info().Int("rows", n).Msg("spreadsheet loaded")
//
// # Metrics
//
// Initialize metrics once per process:
//
//	metrics := observability.NewMetrics("research_graph")
//
// Record metrics:
//
//	metrics.RecordQuery("search", "ok", len(results), elapsed.Seconds())
//	metrics.SetGraphTriples(g.Len())
//
// A nil *Metrics is valid and records nothing, so library code can run
// without a registry.
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithRunID(ctx, runID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
//   - component: subsystem emitting the entry (converter, server, query)
//   - request_id: HTTP request identifier
//   - run_id: conversion run identifier
//   - operation: query operation (search, papers, sparql, ...)
//   - input: spreadsheet path
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability

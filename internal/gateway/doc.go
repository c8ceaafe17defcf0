// Package gateway implements the transport loop and command router.
//
// # Overview
//
// The gateway speaks newline-delimited JSON with exactly one client over its
// stdio channels: one request object per input line, exactly one response
// object per non-blank input line, in order. stdout carries nothing but
// protocol responses; every diagnostic goes through slog to stderr.
//
// # Transport Loop
//
// Run reads lines from a reader goroutine and processes them strictly
// sequentially; an engine call finishes before the next line is considered.
// Blank lines are skipped without a response. A line that is not valid JSON,
// or that exceeds the line size limit, yields
// {"ok":false,"error":"invalid_json"} and the loop continues. Input
// EOF, a shutdown command, and context cancellation (the signal path) all
// converge on the same cleanup: stop the sweep, close all sessions, return.
//
// # Command Router
//
// dispatch maps the command field to a handler:
//
//	open-session        -> session.Manager.Open
//	message             -> session lookup + executor.Execute
//	close-session       -> session.Manager.Close
//	check-availability  -> availability.Checker.Check
//	shutdown            -> ok response, then loop exit
//
// Handlers validate their own required fields first ("" counts as absent)
// and convert every failure into a structured error response. Nothing
// propagates past the router; the process never exits on a request error.
package gateway

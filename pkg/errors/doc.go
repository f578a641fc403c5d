// Package errors provides structured error types for better observability
// and programmatic error handling across the harness.
//
// Each failure kind of an upgrade run has its own code, so callers can tell a
// remote command failure from a verification regression without parsing text:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeRemoteExec,
//	    "command failed",
//	    cause,
//	    map[string]any{
//	        "command": "imgbase w",
//	        "host":    host,
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeRemoteExec) {
//	    // retry or report
//	}
package errors

package mcp

import (
	"context"
	stderrors "errors"

	"github.com/zoonderkins/augment-lite/internal/errors"
)

// errString maps an internal error onto the wire contract: a short stable
// code, with detail only in debug mode. Verbose diagnostics live in the log.
func (s *Server) errString(err error) string {
	if err == nil {
		return ""
	}

	code := errors.CodeOf(err)
	if stderrors.Is(err, context.Canceled) {
		code = errors.CodeCancelled
	} else if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.CodeTimeout
	}

	if s.cfg.Debug {
		return code + ": " + err.Error()
	}

	switch code {
	case errors.CodeInvalidInput:
		// Invalid-input reasons are always safe and useful to return.
		return err.Error()
	default:
		return code
	}
}

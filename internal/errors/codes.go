package errors

// Machine codes returned to MCP callers. These are part of the wire contract:
// short, stable, and token-compact.
const (
	// CodeInvalidInput indicates rejected input (path traversal, bad project
	// name, oversize fields, shell metacharacters). Never retried.
	CodeInvalidInput = "INVALID_INPUT"

	// CodeUpstreamFailure indicates an LLM or embedding provider failure that
	// survived retries.
	CodeUpstreamFailure = "UPSTREAM_FAILURE"

	// CodeIndexUnavailable indicates that index auto-initialization failed.
	CodeIndexUnavailable = "INDEX_UNAVAILABLE"

	// CodeCancelled indicates the caller cancelled the request.
	CodeCancelled = "CANCELLED"

	// CodeTimeout indicates the overall deadline was exceeded.
	CodeTimeout = "TIMEOUT"

	// CodeReadError indicates unrecoverable file I/O during chunking.
	CodeReadError = "READ_ERROR"

	// CodeDimensionMismatch indicates the embedding dimension does not match
	// the configured or indexed dimension.
	CodeDimensionMismatch = "DIMENSION_MISMATCH"

	// CodeCacheCorrupt indicates a cache partition failed to load and was
	// treated as empty.
	CodeCacheCorrupt = "CACHE_CORRUPT"

	// CodeInternal indicates an unexpected internal error.
	CodeInternal = "INTERNAL"
)

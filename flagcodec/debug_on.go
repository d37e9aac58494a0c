//go:build flagcodec_debug

package flagcodec

// Built with -tags flagcodec_debug, NewTable panics on tables that fail Validate.
const debugChecks = true

//go:build !flagcodec_debug

package flagcodec

const debugChecks = false

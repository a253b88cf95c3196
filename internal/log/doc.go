// Package log provides the scanner's slog handlers.
//
// LineHandler renders one record per line in the form
//
//	[2006-01-02 15:04:05.000000]	[LEVEL] [message key=value ...]
//
// with the levels DEBUG, INFO, WARNING and ERROR. SecureHandler wraps any
// handler and masks secrets, most importantly the password of a SOCKS5
// proxy URL passed on the command line.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, debug)
//	prober := probe.New(transport, probe.WithLogger(logger))
//
// Loggers are passed to components at construction time; nothing in this
// package holds global state.
package log

// Package portrange parses and validates the port range expressions accepted
// by the scan command.
//
// An expression is materialized into a concrete ascending slice before any
// probing starts, so a bad expression never launches a scan. The "all ports"
// expression "-" materializes all 65536 values.
package portrange

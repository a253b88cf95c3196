// Package probe implements the individual port probing techniques.
//
// Every technique sends exactly one crafted packet through a
// packet.Transport and maps the reply (or its absence) onto a closed result
// type. Connect additionally completes and tears down the handshake, and
// HalfOpen sends a single RST after an open classification.
//
// The techniques are building blocks. Combining them into an open/closed
// verdict is the job of the pipeline package.
package probe

// Package pipeline turns probe techniques into port verdicts and runs them
// across a port range.
//
// A Pipeline executes Steps in order against one model.PortReport. The
// decision procedure is built from one step per probe technique in a fixed
// order and stops at the first conclusive technique. Optional steps for OS
// fingerprinting and application identification run only for open ports.
//
// BatchProcessor fans a pipeline out over many ports with errgroup and a
// concurrency limit, and waits for every unit before returning.
package pipeline

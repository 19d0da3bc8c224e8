// Package preflight provides readiness checks for the paths and credentials
// a rename run depends on.
//
// The batch runner calls RunAll once before touching any file, so a broken
// cache directory or a missing API key fails the run up front instead of on
// every file. All checks are local: catalog reachability is not probed here
// and surfaces per file through resolve's error kinds.
package preflight

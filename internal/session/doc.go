// Package session holds the mutable settings for one batch invocation.
//
// A single Settings value is created per run and passed by reference through
// the pipeline. Interactive answers (such as "always rename") mutate it in
// place so every later file in the batch observes the change, while separate
// invocations never share state.
package session

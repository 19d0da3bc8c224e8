// Package language maps user-facing language values (2-letter codes,
// 3-letter codes, or full words like "english") onto the 3-letter codes the
// episode catalog's translated endpoints expect, plus display names for
// prompts and log lines.
package language

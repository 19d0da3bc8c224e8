package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// windowsUnsafe are characters rejected by at least one mainstream
// filesystem. They are always replaced so renamed files stay portable
// across network shares and external drives.
const windowsUnsafe = `\/:*?"<>|`

// reservedNames are device names Windows refuses as file stems.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// maxNameLength caps stem+extension. NTFS and most Unix filesystems allow
// 255; staying one below sidesteps FAT32's 254 limit too.
const maxNameLength = 254

// sanitizeStem makes a rendered name stem safe to use as a filename. The
// unsafe character set and the Windows reserved names are always enforced;
// blacklist lists extra characters the user wants replaced as well.
func sanitizeStem(stem, blacklist, replacement string) string {
	stem = strings.ReplaceAll(stem, "\x00", "")

	var b strings.Builder
	b.Grow(len(stem))
	for _, r := range stem {
		if strings.ContainsRune(windowsUnsafe, r) || strings.ContainsRune(blacklist, r) {
			b.WriteString(replacement)
			continue
		}
		b.WriteRune(r)
	}
	stem = strings.TrimSpace(b.String())

	// A leading dot would hide the file; reserved device stems are unusable
	// on Windows shares.
	if strings.HasPrefix(stem, ".") {
		stem = "_" + stem
	}
	if _, reserved := reservedNames[strings.ToUpper(stem)]; reserved {
		stem = "_" + stem
	}
	return stem
}

// clampLength truncates the stem so stem+ext fits in maxNameLength bytes.
// The extension survives intact unless it is itself longer than the stem.
func clampLength(stem, ext string) (string, string) {
	if len(stem)+len(ext) <= maxNameLength {
		return stem, ext
	}
	if len(ext) > len(stem) {
		return stem, ext[:maxNameLength-len(stem)]
	}
	return stem[:maxNameLength-len(ext)], ext
}

// foldToASCII decomposes accented characters and drops what cannot be
// expressed in ASCII, mirroring an NFKD normalize-and-ignore pass.
func foldToASCII(value string) string {
	decomposed := norm.NFKD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

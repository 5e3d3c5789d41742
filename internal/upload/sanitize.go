// Package upload sanitizes submitted filenames before they touch the
// filesystem, ported from Werkzeug's secure_filename (the function
// original_source relies on for this same purpose at the HTTP boundary),
// expressed in the teacher's plain-function, no-framework style.
package upload

import (
	"regexp"
	"strings"
)

var (
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)
	repeatedDots = regexp.MustCompile(`\.{2,}`)
)

// windowsReservedNames blocks device names that are special on Windows
// filesystems even though the server is unlikely to run there; secure_filename
// itself guards these for the same reason.
var windowsReservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// SecureFilename drops any directory part, replaces each unsafe character
// with "_", collapses repeated dots, and prefixes Windows reserved device
// names with "_", returning a name safe to join under a storage directory.
// An empty, "."/"..", or fully-unsafe input returns "upload".
func SecureFilename(name string) string {
	name = strings.TrimSpace(name)

	// Drop everything before the last path separator, whichever style the
	// client sent.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		name = ""
	}

	name = unsafeChars.ReplaceAllString(name, "_")
	name = repeatedDots.ReplaceAllString(name, ".")
	name = strings.Trim(name, "._")

	if name == "" {
		return "upload"
	}
	if windowsReservedNames[strings.ToLower(strings.TrimSuffix(name, extOf(name)))] {
		name = "_" + name
	}
	return name
}

func extOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[idx:]
	}
	return ""
}

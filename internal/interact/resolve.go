// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package interact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// InteractionDir is the scripts subdirectory holding interaction handlers.
const InteractionDir = "interaction"

// disallowed matches from the first character that cannot appear in a file
// name to the end of the string.
var disallowed = regexp.MustCompile(`[^A-Za-z0-9 _-].*`)

// fileName cuts an entity name at its first unsupported character:
// "Amulet of glory (4)" becomes "Amulet of glory".
func fileName(name string) string {
	return strings.TrimSpace(disallowed.ReplaceAllString(name, ""))
}

// Resolve finds the script handling option on target. For each tag of the
// target, most specific first, it checks
// <root>/interaction/<tag>/<name>.js and then <root>/interaction/<tag>/<option>.js.
// The first existing file wins; without one the error is ErrNotHandled.
// An option with characters outside [A-Za-z0-9 _-] never names a file, so
// it cannot reach outside the tag directory.
func (d *Dispatcher) Resolve(target Interactable, option string) (string, error) {
	name := fileName(target.Name())
	for _, tag := range target.Tags() {
		dir := filepath.Join(d.root, InteractionDir, strings.ToLower(tag))
		for _, base := range []string{name, option} {
			if base == "" || disallowed.MatchString(base) {
				continue
			}
			path := filepath.Join(dir, base+".js")
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no script for %q on %s", ErrNotHandled, option, target.Name())
}

// EntryName derives the entry point called for option. The option is
// lower-cased; each space, hyphen or underscore is dropped and the character
// after it upper-cased. A trailing separator is dropped.
//
//	EntryName("Chop-down")  == "chopDown"
//	EntryName("Rub Amulet") == "rubAmulet"
func EntryName(option string) string {
	runes := []rune(strings.ToLower(option))
	var sb strings.Builder
	sb.Grow(len(option))
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case ' ', '-', '_':
			i++
			if i >= len(runes) {
				return sb.String()
			}
			sb.WriteRune(unicode.ToUpper(runes[i]))
		default:
			sb.WriteRune(runes[i])
		}
	}
	return sb.String()
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

// Package password is a stateless utility for password generation, entropy
// scoring, and k-anonymity breach lookup. It has no dependency on the vault
// store; the UI feeds its output into the store when the user accepts a
// generated password.
package password

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
)

const (
	// MinLength and MaxLength bound the accepted password length.
	MinLength = 8
	MaxLength = 128

	classLower   = "abcdefghijklmnopqrstuvwxyz"
	classUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	classNumbers = "0123456789"
	classSymbols = "!@#$%^&*()-_=+[]{};:,.<>?/~"

	// ambiguous characters are visually confusable glyph pairs, dropped from
	// every class when Options.ExcludeAmbiguous is set.
	ambiguous = "l1IO0o|`'\""
)

// Options controls Generate. At least one Include flag must be set.
type Options struct {
	Length           int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeNumbers   bool
	IncludeSymbols   bool
	ExcludeAmbiguous bool
}

// Generate produces a password of exactly opts.Length characters drawn
// uniformly from the union of the selected classes using the OS CSPRNG with
// rejection sampling (no modulo bias).
//
// A post-generation pass guarantees that at least one character from every
// selected class is present: missing classes are written into distinct
// reserved positions, and the pass repeats until no class is missing.
// Characters from unselected classes are never introduced.
//
// Returns ErrInvalidOptions when the length is outside [MinLength,
// MaxLength] or no class is selected.
func Generate(opts Options) (string, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", fmt.Errorf("%w: length %d outside [%d, %d]", ErrInvalidOptions, opts.Length, MinLength, MaxLength)
	}

	classes := opts.selectedClasses()
	if len(classes) == 0 {
		return "", fmt.Errorf("%w: no character class selected", ErrInvalidOptions)
	}

	union := strings.Join(classes, "")

	out := make([]byte, opts.Length)
	for i := range out {
		idx, err := uniformIndex(len(union))
		if err != nil {
			return "", err
		}
		out[i] = union[idx]
	}

	// Guarantee every selected class is represented. Fix-ups land on
	// distinct reserved positions that later fix-ups never overwrite, and
	// the scan repeats until no class is missing: a fix for one class can
	// displace the sole occurrence of another. A class fixed at a reserved
	// position stays present, so the loop ends after at most one fix per
	// class (MinLength >= number of classes).
	used := make(map[int]bool, len(classes))
	for {
		missing := missingClasses(out, classes)
		if len(missing) == 0 {
			break
		}
		for _, class := range missing {
			pos, err := freePosition(len(out), used)
			if err != nil {
				return "", err
			}
			idx, err := uniformIndex(len(class))
			if err != nil {
				return "", err
			}
			out[pos] = class[idx]
			used[pos] = true
		}
	}

	return string(out), nil
}

// missingClasses returns the classes with no occurrence in out.
func missingClasses(out []byte, classes []string) []string {
	var missing []string
	for _, class := range classes {
		if !strings.ContainsAny(string(out), class) {
			missing = append(missing, class)
		}
	}
	return missing
}

// CopyToClipboard puts a generated password on the system clipboard so the
// user can paste it into a registration form. Best effort: headless
// environments report an error which the caller may ignore.
func CopyToClipboard(pw string) error {
	if err := clipboard.WriteAll(pw); err != nil {
		return fmt.Errorf("copy password to clipboard: %w", err)
	}
	return nil
}

func (o Options) selectedClasses() []string {
	var classes []string
	if o.IncludeLowercase {
		classes = append(classes, o.filterAmbiguous(classLower))
	}
	if o.IncludeUppercase {
		classes = append(classes, o.filterAmbiguous(classUpper))
	}
	if o.IncludeNumbers {
		classes = append(classes, o.filterAmbiguous(classNumbers))
	}
	if o.IncludeSymbols {
		classes = append(classes, o.filterAmbiguous(classSymbols))
	}
	return classes
}

func (o Options) filterAmbiguous(class string) string {
	if !o.ExcludeAmbiguous {
		return class
	}
	var b strings.Builder
	for i := 0; i < len(class); i++ {
		if !strings.ContainsRune(ambiguous, rune(class[i])) {
			b.WriteByte(class[i])
		}
	}
	return b.String()
}

// uniformIndex draws an index in [0, n) from the CSPRNG with rejection
// sampling: bytes above the largest multiple of n are discarded.
func uniformIndex(n int) (int, error) {
	if n <= 0 || n > 256 {
		return 0, fmt.Errorf("%w: charset size %d", ErrInvalidOptions, n)
	}
	limit := 256 - (256 % n)

	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return 0, fmt.Errorf("read random byte: %w", err)
		}
		if int(buf[0]) < limit {
			return int(buf[0]) % n, nil
		}
	}
}

// freePosition picks a random position not yet claimed by a class fix-up.
func freePosition(length int, used map[int]bool) (int, error) {
	for {
		pos, err := uniformIndex(length)
		if err != nil {
			return 0, err
		}
		if !used[pos] {
			return pos, nil
		}
	}
}

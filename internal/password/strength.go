package password

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Strength is the result of Analyze.
type Strength struct {
	// Score is the penalized strength rating in [0, 100].
	Score int `json:"score"`

	// EntropyBits is the raw charset entropy: length * log2(distinct
	// charset size used). Penalties apply to Score and the crack-time
	// estimate, not to this figure, so it grows monotonically with length.
	EntropyBits float64 `json:"entropy_bits"`

	// CrackTimeEstimate is a human-readable estimate assuming a fixed
	// offline adversary guess rate. Purely illustrative.
	CrackTimeEstimate string `json:"crack_time_estimate"`

	// Feedback lists detected weaknesses in the order found.
	Feedback []string `json:"feedback,omitempty"`

	// IsWeak is true when EntropyBits < 50 or Score < 60.
	IsWeak bool `json:"is_weak"`
}

const (
	weakEntropyBits = 50
	weakScore       = 60

	// guessesPerSecond models a well-funded offline attacker with GPU rigs.
	guessesPerSecond = 1e10

	penaltyDictionary = 20
	penaltyKeyboard   = 10
	penaltySequential = 10
	penaltyRepeat     = 10
	penaltyYear       = 5
)

// commonPasswords is a small embedded dictionary of the most frequently
// cracked passwords. Matching is case-insensitive on the whole input.
var commonPasswords = map[string]bool{
	"password": true, "passw0rd": true, "password1": true, "123456": true,
	"12345678": true, "123456789": true, "1234567890": true, "qwerty": true,
	"qwerty123": true, "letmein": true, "welcome": true, "monkey": true,
	"dragon": true, "master": true, "iloveyou": true, "admin": true,
	"abc123": true, "football": true, "shadow": true, "sunshine": true,
	"trustno1": true, "111111": true, "superman": true, "hunter2": true,
}

// keyboardRows are the physical QWERTY rows scanned for adjacency
// substrings in both directions.
var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"1234567890",
}

// Analyze scores a password. EntropyBits follows the charset model
// (length x log2 of the union of classes actually used); Score additionally
// subtracts fixed penalties for each detected pattern category.
func Analyze(pw string) Strength {
	var s Strength
	if pw == "" {
		s.CrackTimeEstimate = "instant"
		s.IsWeak = true
		s.Feedback = append(s.Feedback, "password is empty")
		return s
	}

	s.EntropyBits = float64(len(pw)) * math.Log2(float64(charsetSizeUsed(pw)))

	penalty := 0
	lower := strings.ToLower(pw)

	if commonPasswords[lower] {
		penalty += penaltyDictionary
		s.Feedback = append(s.Feedback, "matches a commonly used password")
	}
	if hasKeyboardRun(lower) {
		penalty += penaltyKeyboard
		s.Feedback = append(s.Feedback, "contains a keyboard-adjacent sequence")
	}
	if hasSequentialRun(pw) {
		penalty += penaltySequential
		s.Feedback = append(s.Feedback, "contains sequential characters")
	}
	if hasRepeatRun(pw) {
		penalty += penaltyRepeat
		s.Feedback = append(s.Feedback, "contains repeated characters")
	}
	if hasYear(pw) {
		penalty += penaltyYear
		s.Feedback = append(s.Feedback, "contains a four-digit year")
	}

	effective := s.EntropyBits - float64(penalty)
	if effective < 0 {
		effective = 0
	}

	// 80 effective bits maps to a full score; clamp to [0, 100].
	score := int(effective / 80 * 100)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	s.Score = score

	s.CrackTimeEstimate = crackTime(effective)
	s.IsWeak = s.EntropyBits < weakEntropyBits || s.Score < weakScore

	return s
}

// charsetSizeUsed returns the size of the union of character classes that
// actually occur in pw.
func charsetSizeUsed(pw string) int {
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	size := 0
	if lower {
		size += 26
	}
	if upper {
		size += 26
	}
	if digit {
		size += 10
	}
	if symbol {
		size += 32
	}
	if size == 0 {
		size = 1
	}
	return size
}

// hasKeyboardRun reports whether pw (already lowercased) contains a
// substring of 4+ physically adjacent keys, forward or reversed.
func hasKeyboardRun(pw string) bool {
	for _, row := range keyboardRows {
		for i := 0; i+4 <= len(row); i++ {
			chunk := row[i : i+4]
			if strings.Contains(pw, chunk) || strings.Contains(pw, reverse(chunk)) {
				return true
			}
		}
	}
	return false
}

// hasSequentialRun reports a run of 3+ characters with consecutive code
// points, ascending or descending ("abc", "987").
func hasSequentialRun(pw string) bool {
	runes := []rune(pw)
	for i := 0; i+2 < len(runes); i++ {
		if runes[i+1] == runes[i]+1 && runes[i+2] == runes[i]+2 {
			return true
		}
		if runes[i+1] == runes[i]-1 && runes[i+2] == runes[i]-2 {
			return true
		}
	}
	return false
}

// hasRepeatRun reports a run of 3+ identical characters.
func hasRepeatRun(pw string) bool {
	runes := []rune(pw)
	for i := 0; i+2 < len(runes); i++ {
		if runes[i] == runes[i+1] && runes[i] == runes[i+2] {
			return true
		}
	}
	return false
}

// hasYear reports a 4-digit substring that reads as a plausible year
// (1900-2099).
func hasYear(pw string) bool {
	for i := 0; i+4 <= len(pw); i++ {
		chunk := pw[i : i+4]
		if !allDigits(chunk) {
			continue
		}
		if strings.HasPrefix(chunk, "19") || strings.HasPrefix(chunk, "20") {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// crackTime renders 2^bits / guessesPerSecond as a coarse human duration.
func crackTime(bits float64) string {
	seconds := math.Pow(2, bits) / guessesPerSecond

	switch {
	case seconds < 1:
		return "instant"
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.0f minutes", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%.0f hours", seconds/3600)
	case seconds < 86400*365:
		return fmt.Sprintf("%.0f days", seconds/86400)
	case seconds < 86400*365*1000:
		return fmt.Sprintf("%.0f years", seconds/(86400*365))
	default:
		return "centuries"
	}
}

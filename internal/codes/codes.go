// Package codes derives the 5-character progress codes learners report.
// A code is a pure function of (kind, assignment key, group, count), so an
// instructor can regenerate any code offline.
package codes

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Alphabet is the code symbol set.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of symbols in a code.
const Length = 5

// DefaultKey replaces an empty assignment key.
const DefaultKey = "DEFAULT"

// Kind distinguishes checkpoint codes from the completion code.
type Kind string

const (
	Checkpoint Kind = "CHECKPOINT"
	Final      Kind = "FINAL"
)

// Label returns the answer-key column text for k.
func (k Kind) Label() string {
	if k == Final {
		return "FINAL COMPLETION"
	}
	return string(k)
}

// Derive returns the code for one (assignmentKey, group, count, kind).
func Derive(assignmentKey string, group, count int, kind Kind) string {
	rng := rand.New(rand.NewPCG(Seed(assignmentKey, group, count, kind), 0))

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		// IntN is unbiased for any n.
		b.WriteByte(Alphabet[rng.IntN(len(Alphabet))])
	}
	return b.String()
}

// Seed hashes the composite string and returns its first 8 bytes.
func Seed(assignmentKey string, group, count int, kind Kind) uint64 {
	sum := sha256.Sum256([]byte(Composite(assignmentKey, group, count, kind)))
	return binary.BigEndian.Uint64(sum[:8])
}

// Composite encodes the inputs as length-prefixed fields, so distinct inputs
// never collide through concatenation.
func Composite(assignmentKey string, group, count int, kind Kind) string {
	if assignmentKey == "" {
		assignmentKey = DefaultKey
	}
	var b strings.Builder
	writeField(&b, "kind", string(kind))
	writeField(&b, "key", assignmentKey)
	writeField(&b, "group", strconv.Itoa(group))
	writeField(&b, "count", strconv.Itoa(count))
	return b.String()
}

func writeField(b *strings.Builder, tag, value string) {
	b.WriteString(tag)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(value)))
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte(';')
}

// Valid reports whether s has the shape of a code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Checkpoints returns the counts at which CHECKPOINT codes are issued in a
// run of max exercises: every multiple of interval up to and including max.
// The FINAL code at max is issued in addition, never instead.
func Checkpoints(interval, max int) []int {
	if interval < 1 || max < 1 {
		return nil
	}
	var out []int
	for c := interval; c <= max; c += interval {
		out = append(out, c)
	}
	return out
}

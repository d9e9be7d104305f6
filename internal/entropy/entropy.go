// Package entropy synthesizes deterministic pseudo-random instruction
// streams for fixtures and exploratory runs, without hand-writing a
// JSON stream file. It chains Blake2b-512 output the same way the
// proof-of-work program generator it was adapted from chains hash
// output to fill an instruction buffer.
package entropy

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

// blockSize is the number of pseudo-random bytes drawn from each
// Blake2b-512 chain link before re-hashing for more.
const blockSize = 64

// Stream is one entropy-derived choice per synthesized instruction:
// the iform picked from the arch's table and the seed bytes used to
// pick it, kept around so callers can derive operand registers or
// immediates deterministically from the same entropy.
type Stream struct {
	Iform string
	Seed  []byte
}

// Generate derives n pseudo-random instruction picks for arch from
// seed, by chaining Blake2b-512 hashes of seed and selecting one
// registered iform per 8-byte window of the resulting entropy.
//
// Generate is deterministic: the same seed, arch and n always produce
// the same Stream slice, since the underlying hash chain is itself
// fully determined by its input bytes.
func Generate(arch instrdata.Arch, seed []byte, n int) ([]Stream, error) {
	table := instrdata.Lookup(arch)
	if table == nil {
		return nil, fmt.Errorf("entropy: unknown microarchitecture %q", arch)
	}
	iforms := sortedIforms(table)
	if len(iforms) == 0 {
		return nil, fmt.Errorf("entropy: microarchitecture %q has no instruction forms", arch)
	}

	entropy := chainEntropy(seed, n*8)
	streams := make([]Stream, n)
	for i := 0; i < n; i++ {
		offset := i * 8
		window := entropy[offset : offset+8]
		idx := int(window[0]) % len(iforms)
		streams[i] = Stream{Iform: iforms[idx], Seed: window}
	}
	return streams, nil
}

// chainEntropy fills a buffer of at least size bytes by repeatedly
// hashing seed (then the previous hash) with Blake2b-512, exactly as
// hashProgramEntropy chains hashes to fill a fixed program buffer.
func chainEntropy(seed []byte, size int) []byte {
	hash := blake2b.Sum512(seed)
	out := make([]byte, size)
	n := copy(out, hash[:])

	for n < size {
		hash = blake2b.Sum512(hash[:])
		n += copy(out[n:], hash[:])
	}
	return out
}

// sortedIforms returns t's iforms in a fixed order: map iteration
// order is not stable, and Generate's selection must be.
func sortedIforms(t instrdata.Table) []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

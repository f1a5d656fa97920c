// Package token implements the rotating shared-secret scheme that guards the
// agent's API: six long-lived seeds persisted once at first run, and the
// 15-second token windows derived from them.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/jedib0t/go-pretty/v6/table"
	mathrand "math/rand"
)

const (
	// SeedSize is the length of one secret seed in bytes.
	SeedSize = 64

	// SeedCount is the number of independent seeds.
	SeedCount = 6
)

// ErrSeedUnavailable is returned when the seed file is missing or truncated.
// Callers must treat it as fail-closed: no token is valid.
var ErrSeedUnavailable = errors.New("token: seed file missing or short")

// SeedStore owns the persisted seed material. It is constructed once at
// startup and is immutable afterwards.
type SeedStore struct {
	path  string
	seeds []byte
}

// NewSeedStore creates a store bound to the given seed file path. No I/O
// happens until EnsureInitialized or Load is called.
func NewSeedStore(path string) *SeedStore {
	return &SeedStore{path: path}
}

// Path returns the seed file location.
func (s *SeedStore) Path() string { return s.path }

// EnsureInitialized generates and persists the seed material if the seed file
// does not exist yet. An existing file is never touched. On first creation it
// performs the one-time operator reveal and returns true.
func (s *SeedStore) EnsureInitialized() (created bool, err error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("token: stat seed file: %w", err)
	}

	seeds := make([]byte, SeedSize*SeedCount)
	if _, err := rand.Read(seeds); err != nil {
		return false, fmt.Errorf("token: generate seeds: %w", err)
	}

	if err := writeAtomic(s.path, seeds); err != nil {
		return false, err
	}

	s.seeds = seeds
	reveal(seeds)
	return true, nil
}

// Load reads the seed material from disk. A missing or short file yields
// ErrSeedUnavailable so that authentication fails closed.
func (s *SeedStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ErrSeedUnavailable
	}
	if len(data) < SeedSize*SeedCount {
		return ErrSeedUnavailable
	}
	s.seeds = data[:SeedSize*SeedCount]
	return nil
}

// Seeds returns the loaded seed material, or ErrSeedUnavailable when the
// store has not been loaded. Seeds are re-read lazily so a file deleted at
// runtime flips the store back to fail-closed.
func (s *SeedStore) Seeds() ([]byte, error) {
	if s.seeds == nil {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s.seeds, nil
}

// Seed returns the i-th seed slice.
func (s *SeedStore) Seed(i int) ([]byte, error) {
	seeds, err := s.Seeds()
	if err != nil {
		return nil, err
	}
	return seeds[i*SeedSize : (i+1)*SeedSize], nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("token: create seed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".seed-*")
	if err != nil {
		return fmt.Errorf("token: create seed file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("token: restrict seed file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("token: write seeds: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("token: close seed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("token: persist seed file: %w", err)
	}
	return nil
}

// reveal prints the node key once, in both base64 and an obfuscated hex/ASCII
// dump, and copies the base64 form to the clipboard where one is available.
// The dump randomly masks bytes so a shoulder-surfed screen or screenshot
// does not leak the full key; the base64 line carries the real material.
func reveal(seeds []byte) {
	encoded := base64.StdEncoding.EncodeToString(seeds)

	copied := clipboard.WriteAll(encoded) == nil
	if !copied {
		fmt.Printf("\n%s\n", encoded)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Offset", "Hex", "ASCII"})
	for off := 0; off < len(seeds); off += 16 {
		chunk := seeds[off : off+16]
		t.AppendRow(table.Row{
			fmt.Sprintf("%04x", off),
			obfuscatedHex(chunk),
			obfuscatedASCII(chunk),
		})
	}
	fmt.Println(t.Render())

	if copied {
		fmt.Println("\n  Node key copied to clipboard.")
	} else {
		fmt.Println("\n  Node key generated.")
	}
	fmt.Println("  Please keep it properly. You will never see it again.")
}

func obfuscatedHex(chunk []byte) string {
	out := make([]byte, 0, len(chunk)*3)
	for _, b := range chunk {
		h := fmt.Sprintf("%02X", b)
		for i := 0; i < 2; i++ {
			if mathrand.Float64() < 0.3 {
				out = append(out, '0')
			} else {
				out = append(out, h[i])
			}
		}
		out = append(out, ' ')
	}
	return string(out)
}

func obfuscatedASCII(chunk []byte) string {
	out := make([]byte, 0, len(chunk))
	for _, b := range chunk {
		switch {
		case mathrand.Float64() < 0.5:
			out = append(out, '.')
		case b > 0x20 && b < 0x7f:
			out = append(out, b)
		default:
			out = append(out, '*')
		}
	}
	return string(out)
}

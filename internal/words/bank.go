// Package words manages the word-pair bank: closely related word pairs
// where the majority faction shares one word and the minority holds
// the other.
package words

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Pair is one majority/minority word pairing. The words must be close
// enough that descriptions overlap, but distinct enough to be found out.
type Pair struct {
	Majority string `yaml:"majority"`
	Minority string `yaml:"minority"`
}

// bankFile is the on-disk YAML layout.
type bankFile struct {
	Pairs []Pair `yaml:"pairs"`
}

// defaultPairs seeds the bank when no file is configured or loading
// fails.
var defaultPairs = []Pair{
	{Majority: "coffee", Minority: "tea"},
	{Majority: "apple", Minority: "pear"},
	{Majority: "piano", Minority: "guitar"},
	{Majority: "ocean", Minority: "lake"},
	{Majority: "novel", Minority: "biography"},
	{Majority: "train", Minority: "subway"},
	{Majority: "butter", Minority: "margarine"},
	{Majority: "soccer", Minority: "rugby"},
	{Majority: "winter", Minority: "autumn"},
	{Majority: "violin", Minority: "cello"},
}

// Bank holds the loaded word pairs.
type Bank struct {
	path  string
	pairs []Pair
}

// NewBank returns an empty in-memory bank, ready for Add and Save.
func NewBank() *Bank {
	return &Bank{}
}

// Load reads a YAML word bank from path. An empty path returns the
// built-in bank; a missing or malformed file is an error so typos in
// configuration surface instead of silently using defaults.
func Load(path string) (*Bank, error) {
	if path == "" {
		return &Bank{pairs: append([]Pair(nil), defaultPairs...)}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading word bank: %w", err)
	}

	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing word bank %s: %w", path, err)
	}

	pairs := make([]Pair, 0, len(file.Pairs))
	for _, pair := range file.Pairs {
		if pair.Majority == "" || pair.Minority == "" || pair.Majority == pair.Minority {
			continue
		}
		pairs = append(pairs, pair)
	}

	return &Bank{path: path, pairs: pairs}, nil
}

// Len returns the number of usable pairs.
func (b *Bank) Len() int {
	return len(b.pairs)
}

// Pairs returns a copy of the bank's pairs.
func (b *Bank) Pairs() []Pair {
	pairs := make([]Pair, len(b.pairs))
	copy(pairs, b.pairs)
	return pairs
}

// RandomPair draws one pair uniformly from the bank using the given
// source. An empty bank falls back to the first built-in pair so a game
// can always start.
func (b *Bank) RandomPair(rng *rand.Rand) Pair {
	if len(b.pairs) == 0 {
		return defaultPairs[0]
	}
	return b.pairs[rng.Intn(len(b.pairs))]
}

// Add appends a pair to the in-memory bank.
func (b *Bank) Add(pair Pair) error {
	if pair.Majority == "" || pair.Minority == "" {
		return fmt.Errorf("word pair must have both words")
	}
	if pair.Majority == pair.Minority {
		return fmt.Errorf("word pair must use two different words")
	}
	b.pairs = append(b.pairs, pair)
	return nil
}

// Save writes the bank back to its file, or to path if the bank was
// built in memory.
func (b *Bank) Save(path string) error {
	if path == "" {
		path = b.path
	}
	if path == "" {
		return fmt.Errorf("no path to save word bank to")
	}

	data, err := yaml.Marshal(bankFile{Pairs: b.pairs})
	if err != nil {
		return fmt.Errorf("encoding word bank: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing word bank: %w", err)
	}
	return nil
}

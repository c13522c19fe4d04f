package words

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltinBank(t *testing.T) {
	bank, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bank.Len() == 0 {
		t.Fatal("built-in bank is empty")
	}
}

func TestLoadYAMLBank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.yaml")
	content := `pairs:
  - majority: coffee
    minority: tea
  - majority: dog
    minority: wolf
  - majority: same
    minority: same
  - majority: lonely
    minority: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// The identical pair and the half-empty pair are dropped.
	if bank.Len() != 2 {
		t.Errorf("Len = %d, want 2", bank.Len())
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestRandomPairIsReproducible(t *testing.T) {
	bank, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	p1 := bank.RandomPair(rand.New(rand.NewSource(5)))
	p2 := bank.RandomPair(rand.New(rand.NewSource(5)))
	if p1 != p2 {
		t.Errorf("same seed drew different pairs: %v vs %v", p1, p2)
	}
}

func TestRandomPairEmptyBankFallsBack(t *testing.T) {
	bank := &Bank{}
	pair := bank.RandomPair(rand.New(rand.NewSource(1)))
	if pair.Majority == "" || pair.Minority == "" {
		t.Errorf("fallback pair is incomplete: %v", pair)
	}
}

func TestAddAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.yaml")

	bank := &Bank{}
	if err := bank.Add(Pair{Majority: "sun", Minority: "moon"}); err != nil {
		t.Fatal(err)
	}
	if err := bank.Add(Pair{Majority: "", Minority: "moon"}); err == nil {
		t.Error("Add accepted a half-empty pair")
	}
	if err := bank.Add(Pair{Majority: "moon", Minority: "moon"}); err == nil {
		t.Error("Add accepted an identical pair")
	}

	if err := bank.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("round-tripped bank has %d pairs, want 1", loaded.Len())
	}
}

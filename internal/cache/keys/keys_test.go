package keys

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	k1 := Source("table", "co2estados(1972-2023).csv")
	k2 := Source("table", "co2estados(1972-2023).csv")
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestNormalization_EquivalentPathsShareKey(t *testing.T) {
	k1 := Source("table", " ./data/co2.csv ")
	k2 := Source("table", "data/co2.csv")
	if k1 != k2 {
		t.Fatalf("normalized keys differ:\n k1=%s\n k2=%s", k1, k2)
	}
	if !regexp.MustCompile(`^[A-Za-z0-9:_=.\-]+$`).MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestDifference_KindAndSourceMatter(t *testing.T) {
	if Source("table", "a.csv") == Source("boundaries", "a.csv") {
		t.Fatal("kind must be part of the key")
	}
	if Source("table", "https://x/a.csv") == Source("table", "https://y/a.csv") {
		t.Fatal("hosts must produce different keys")
	}
}

func TestUnicodeSafety_NoPanicAndHashSuffixPresent(t *testing.T) {
	k := Source("boundaries", "/dados/estados do Brasil/divisões.json")
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if m := regexp.MustCompile(`:h=([0-9a-f]{16})$`).FindStringSubmatch(k); len(m) != 2 {
		t.Fatalf("missing or invalid :h=<hex64> suffix in key: %s", k)
	}
	if !strings.HasPrefix(k, "src:boundaries:") {
		t.Fatalf("unexpected prefix: %s", k)
	}
}

package regions

import "testing"

func TestAll_Has27UniqueCodes(t *testing.T) {
	got := All()
	if len(got) != 27 {
		t.Fatalf("len=%d want 27", len(got))
	}
	seen := map[string]bool{}
	for _, r := range got {
		if len(r.Code) != 2 {
			t.Fatalf("bad code %q for %s", r.Code, r.Name)
		}
		if seen[r.Code] {
			t.Fatalf("duplicate code %s", r.Code)
		}
		seen[r.Code] = true
	}
}

func TestCode_AccentAndCaseInsensitive(t *testing.T) {
	cases := map[string]string{
		"São Paulo":           "SP",
		"sao  paulo":          "SP",
		"SÃO PAULO":           "SP",
		" Mato Grosso do Sul": "MS",
		"Distrito Federal":    "DF",
		"rondonia":            "RO",
	}
	for in, want := range cases {
		got, ok := Code(in)
		if !ok || got != want {
			t.Errorf("Code(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := Code("Atlantis"); ok {
		t.Fatal("expected unknown region")
	}
}

func TestByCode(t *testing.T) {
	r, ok := ByCode(" rj ")
	if !ok || r.Name != "Rio De Janeiro" {
		t.Fatalf("got %+v,%v", r, ok)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  MATO GROSSO DO SUL ": "Mato Grosso Do Sul",
		"são paulo":             "São Paulo",
		"rio   de janeiro":      "Rio De Janeiro",
		"":                      "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q)=%q want %q", in, got, want)
		}
	}
}

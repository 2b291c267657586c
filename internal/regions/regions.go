// Package regions holds the closed set of Brazilian federative units and their
// two-letter codes, used to join table rows against boundary features.
package regions

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Region struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// names as they appear after NormalizeName
var all = []Region{
	{"Acre", "AC"}, {"Alagoas", "AL"}, {"Amapá", "AP"}, {"Amazonas", "AM"},
	{"Bahia", "BA"}, {"Ceará", "CE"}, {"Distrito Federal", "DF"},
	{"Espírito Santo", "ES"}, {"Goiás", "GO"}, {"Maranhão", "MA"},
	{"Mato Grosso", "MT"}, {"Mato Grosso Do Sul", "MS"}, {"Minas Gerais", "MG"},
	{"Pará", "PA"}, {"Paraíba", "PB"}, {"Paraná", "PR"}, {"Pernambuco", "PE"},
	{"Piauí", "PI"}, {"Rio De Janeiro", "RJ"}, {"Rio Grande Do Norte", "RN"},
	{"Rio Grande Do Sul", "RS"}, {"Rondônia", "RO"}, {"Roraima", "RR"},
	{"Santa Catarina", "SC"}, {"São Paulo", "SP"}, {"Sergipe", "SE"},
	{"Tocantins", "TO"},
}

var (
	byFolded = map[string]Region{}
	byCode   = map[string]Region{}
)

func init() {
	for _, r := range all {
		byFolded[fold(r.Name)] = r
		byCode[r.Code] = r
	}
}

// All returns the 27 units sorted by name.
func All() []Region {
	out := make([]Region, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Code resolves a state name to its code. Matching ignores case, accents and
// repeated whitespace, so "sao  paulo" and "SÃO PAULO" both give "SP".
func Code(name string) (string, bool) {
	r, ok := byFolded[fold(name)]
	return r.Code, ok
}

func ByCode(code string) (Region, bool) {
	r, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// NormalizeName trims, collapses whitespace and title-cases a region name.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.BrazilianPortuguese).String(s)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

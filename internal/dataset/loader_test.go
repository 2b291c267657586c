package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_WideLayout(t *testing.T) {
	in := "\ufeffEstado,2019,2020,2021\n" +
		"  SÃO PAULO ,100.5,98,\n" +
		"acre,1,NaN,\"2,5\"\n" +
		",9,9,9\n"

	tbl, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"São Paulo", "Acre"}, tbl.Regions())
	assert.Equal(t, []int{2019, 2020, 2021}, tbl.Years())

	v, ok := tbl.Value("São Paulo", 2019)
	require.True(t, ok)
	assert.InDelta(t, 100.5, v, 1e-9)

	_, ok = tbl.Value("São Paulo", 2021)
	assert.False(t, ok, "empty cell must be absent")
	_, ok = tbl.Value("Acre", 2020)
	assert.False(t, ok, "NaN cell must be absent")

	v, ok = tbl.Value("Acre", 2021)
	require.True(t, ok)
	assert.InDelta(t, 2.5, v, 1e-9)

	assert.Equal(t, "SP", tbl.Code("São Paulo"))
}

func TestParseCSV_ShortRowsArePadded(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("uf,2020,2021\nBahia,3\n"))
	require.NoError(t, err)
	_, ok := tbl.Value("Bahia", 2021)
	assert.False(t, ok)
}

func TestParseCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no years":     "estado\nAcre\n",
		"bad year":     "estado,20x0\nAcre,1\n",
		"bad value":    "estado,2020\nAcre,abc\n",
		"dup region":   "estado,2020\nAcre,1\nACRE,2\n",
		"dup year col": "estado,2020,2020\nAcre,1,2\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

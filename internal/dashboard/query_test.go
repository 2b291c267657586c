package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/br-emissions/internal/binscale"
	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
)

func exampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New(
		[]string{"A", "B", "C"},
		[]int{2020, 2021},
		[][]float64{{10, 15}, {20, 20}, {dataset.Absent(), 5}},
	)
	require.NoError(t, err)
	return tbl
}

func TestExecute_CombinesStatsAndScale(t *testing.T) {
	q := New(exampleTable(t), 5, nil)

	res := q.Execute(context.Background(), "A", 2021)
	require.True(t, res.OK(), "warning: %+v", res.Warning)

	r := res.Response
	assert.Equal(t, 2, r.Stats.Rank)
	assert.Equal(t, "B", r.Stats.MaxRegion)
	assert.InDelta(t, 13.33, r.Stats.NationalMean, 0.01)
	require.NotNil(t, r.Stats.VariationPercent)
	assert.InDelta(t, 50.0, *r.Stats.VariationPercent, 1e-9)

	want, err := binscale.Thresholds(exampleTable(t), 2021, 5)
	require.NoError(t, err)
	assert.Equal(t, want, r.Thresholds)
	assert.Len(t, r.Values, 3)
}

func TestExecute_FailuresBecomeWarnings(t *testing.T) {
	q := New(exampleTable(t), 5, nil)

	cases := []struct {
		name   string
		region string
		year   int
		bins   int
		kind   model.ErrorKind
	}{
		{"missing value", "C", 2020, 5, model.KindMissingValue},
		{"unknown year", "A", 1999, 5, model.KindNotFound},
		{"unknown region", "Z", 2020, 5, model.KindNotFound},
		{"bad bins", "A", 2020, 1, model.KindInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := q.ExecuteBins(context.Background(), tc.region, tc.year, tc.bins)
			require.False(t, res.OK())
			require.NotNil(t, res.Warning)
			assert.Nil(t, res.Response)
			assert.Equal(t, tc.kind, res.Warning.Kind)
			assert.Equal(t, tc.region, res.Warning.Region)
			assert.Equal(t, tc.year, res.Warning.Year)
			assert.NotEmpty(t, res.Warning.Message)
		})
	}
}

func TestExecute_EmptyColumnIsAWarning(t *testing.T) {
	tbl, err := dataset.New([]string{"A"}, []int{2020}, [][]float64{{dataset.Absent()}})
	require.NoError(t, err)
	res := New(tbl, 5, nil).Execute(context.Background(), "A", 2020)
	require.NotNil(t, res.Warning)
	// the requested value itself is absent, which is reported first
	assert.Equal(t, model.KindMissingValue, res.Warning.Kind)
}

type panickyView struct{ dataset.View }

func (panickyView) HasRegion(string) bool { panic("corrupt table") }

func TestExecute_RecoversPanics(t *testing.T) {
	q := New(panickyView{exampleTable(t)}, 5, nil)
	res := q.Execute(context.Background(), "A", 2021)
	require.NotNil(t, res.Warning)
	assert.Equal(t, model.KindInternal, res.Warning.Kind)
	assert.Contains(t, res.Warning.Message, "A in 2021")
}

func TestExecute_Idempotent(t *testing.T) {
	q := New(exampleTable(t), 4, nil)
	a := q.Execute(context.Background(), "B", 2021)
	b := q.Execute(context.Background(), "B", 2021)
	assert.Equal(t, a, b)
}

package domain

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreTable(t *testing.T) *Table {
	t.Helper()
	return mustTable(t, []string{"01001", "01003", "01005", "01007"},
		ColumnPower, []float64{79, 80, math.NaN(), 95},
		ColumnFiber, []float64{90, 10, 50, 70},
	)
}

func TestFilter_Thresholds(t *testing.T) {
	out := Filter(scoreTable(t), Thresholds{ColumnPower: 80})

	passes, ok := out.Column(ColumnPasses)
	require.True(t, ok)
	assert.True(t, math.IsNaN(passes[0]), "79 < 80 fails")
	assert.Equal(t, 1.0, passes[1], "80 >= 80 passes")
	assert.True(t, math.IsNaN(passes[2]), "missing fails")
	assert.Equal(t, 1.0, passes[3])
}

func TestFilter_MissingNeverPassesZeroThreshold(t *testing.T) {
	out := Filter(scoreTable(t), Thresholds{ColumnPower: 0})

	assert.True(t, math.IsNaN(out.Value(2, ColumnPasses)))
	assert.Equal(t, 1.0, out.Value(0, ColumnPasses))
}

func TestFilter_AllThresholdsMustHold(t *testing.T) {
	out := Filter(scoreTable(t), Thresholds{ColumnPower: 80, ColumnFiber: 50})

	assert.True(t, math.IsNaN(out.Value(1, ColumnPasses)), "fiber 10 fails")
	assert.Equal(t, 1.0, out.Value(3, ColumnPasses))
}

func TestFilter_EmptyThresholdsPassAll(t *testing.T) {
	out := Filter(scoreTable(t), Thresholds{})

	passes, _ := out.Column(ColumnPasses)
	assert.Equal(t, []float64{1, 1, 1, 1}, passes)
}

func TestFilter_AbsentColumnFailsAll(t *testing.T) {
	out := Filter(scoreTable(t), Thresholds{ColumnLand: 0})

	passes, _ := out.Column(ColumnPasses)
	for i, p := range passes {
		assert.True(t, math.IsNaN(p), "row %d", i)
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := scoreTable(t)

	_ = Filter(in, Thresholds{ColumnPower: 80})

	assert.False(t, in.HasColumn(ColumnPasses))
}

func TestProject(t *testing.T) {
	filtered := Filter(mustTable(t, []string{"01001", "01003"}, ColumnPower, []float64{90, 90}), Thresholds{ColumnPower: 50})
	passes, _ := filtered.Column(ColumnPasses)
	passes[1] = math.NaN()
	filtered, err := filtered.WithColumn(ColumnPasses, passes)
	require.NoError(t, err)

	out, err := Project(filtered, ColumnPower, nil)
	require.NoError(t, err)

	assert.Equal(t, 90.0, out.Value(0, ColumnColorVal))
	assert.True(t, math.IsNaN(out.Value(1, ColumnColorVal)))
	assert.False(t, filtered.HasColumn(ColumnColorVal))
}

func TestProject_AllowList(t *testing.T) {
	filtered := Filter(scoreTable(t), Thresholds{ColumnFiber: 0})
	allow, err := NewAllowList("1001", "01005")
	require.NoError(t, err)

	out, err := Project(filtered, ColumnFiber, allow)
	require.NoError(t, err)

	assert.Equal(t, 90.0, out.Value(0, ColumnColorVal))
	assert.True(t, math.IsNaN(out.Value(1, ColumnColorVal)), "outside allow-list")
	assert.Equal(t, 50.0, out.Value(2, ColumnColorVal))
	assert.True(t, math.IsNaN(out.Value(3, ColumnColorVal)), "outside allow-list")
}

func TestProject_Errors(t *testing.T) {
	tbl := scoreTable(t)

	_, err := Project(tbl, ColumnPower, nil)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Project(Filter(tbl, nil), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestFilterProject_Idempotent(t *testing.T) {
	master := scoreTable(t)
	snapshot := master.Clone()
	opts := []cmp.Option{cmp.AllowUnexported(Table{}), cmpopts.EquateNaNs()}
	thresholds := Thresholds{ColumnPower: 80, ColumnFiber: 20}

	run := func() *Table {
		out, err := Project(Filter(master, thresholds), ColumnPower, nil)
		require.NoError(t, err)
		return out
	}
	first := run()
	second := run()

	if diff := cmp.Diff(first, second, opts...); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot, master, opts...); diff != "" {
		t.Errorf("master table modified (-before +after):\n%s", diff)
	}
}

func TestFilter_ThresholdsOverwriteBetweenCalls(t *testing.T) {
	master := scoreTable(t)

	strict := Filter(master, Thresholds{ColumnFiber: 80})
	loose := Filter(master, Thresholds{ColumnFiber: 0})

	assert.True(t, math.IsNaN(strict.Value(1, ColumnPasses)))
	assert.Equal(t, 1.0, loose.Value(1, ColumnPasses))
}

func TestThresholds_Columns(t *testing.T) {
	assert.Equal(t, []string{ColumnFiber, ColumnPower}, Thresholds{ColumnPower: 1, ColumnFiber: 2}.Columns())
}

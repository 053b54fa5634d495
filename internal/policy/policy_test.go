package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/seiqhcdro/internal/model"
)

func TestSchedule_NoStages(t *testing.T) {
	s := NewSchedule(2.7, nil)
	for _, r := range Sample(s, 200) {
		require.Equal(t, 2.7, r)
	}
	assert.Equal(t, -1, s.Stage(50))
}

func TestSchedule_BeforeFirstStage(t *testing.T) {
	s := NewSchedule(4.1, []model.Stage{{StartDay: 8, ReductionRate: 1.3, Contained: 0.1}})
	assert.Equal(t, 4.1, s.At(0))
	assert.Equal(t, 4.1, s.At(7.999))
	assert.Equal(t, -1, s.Stage(7.5))
	assert.Equal(t, 0, s.Stage(8))
}

func TestSchedule_FirstStageRamp(t *testing.T) {
	s := NewSchedule(4.1, []model.Stage{{StartDay: 8, ReductionRate: 1.3, Contained: 0.1}})
	// 4.1*(1-0.1) - 2*1.3/30*(8-7)*0.1
	assert.InDelta(t, 3.681333333, s.At(8), 1e-9)
	assert.InDelta(t, 3.69-2*1.3/30*13.5*0.1, s.At(20.5), 1e-12)
}

func TestSchedule_LastStageExtends(t *testing.T) {
	stages := []model.Stage{
		{StartDay: 5, ReductionRate: 0, Contained: 0.2},
		{StartDay: 10, ReductionRate: 0, Contained: 0.6},
	}
	s := NewSchedule(4, stages)
	assert.InDelta(t, 3.2, s.At(7), 1e-12)
	// tightening caps at the new ceiling r0*(1-0.6)
	assert.InDelta(t, 1.6, s.At(10), 1e-12)
	assert.InDelta(t, 1.6, s.At(1000), 1e-12)
	assert.Equal(t, 1, s.Stage(1000))
}

func TestSchedule_LooseningRampsUp(t *testing.T) {
	stages := []model.Stage{
		{StartDay: 5, ReductionRate: 0.5, Contained: 0.5},
		{StartDay: 20, ReductionRate: 1, Contained: 0.2},
	}
	s := NewSchedule(4, stages)
	// anchor R(19) = 2 - 2*0.5/30*15*0.5 = 1.75
	assert.InDelta(t, 1.75, s.At(19), 1e-12)
	assert.InDelta(t, 1.75+2.0/30*30*0.8, s.At(49), 1e-12)
}

func TestSchedule_LooseningAfterSuppressionStaysZero(t *testing.T) {
	stages := []model.Stage{
		{StartDay: 5, ReductionRate: 10, Contained: 0.9},
		{StartDay: 20, ReductionRate: 1, Contained: 0.1},
	}
	s := NewSchedule(4.1, stages)
	assert.Zero(t, s.At(19))
	assert.Zero(t, s.At(20))
	assert.Zero(t, s.At(250))
}

func TestSchedule_FloorAtZero(t *testing.T) {
	s := NewSchedule(4.1, []model.Stage{{StartDay: 10, ReductionRate: 8, Contained: 1}})
	for d := 0.0; d <= 300; d += 0.25 {
		r := s.At(d)
		require.GreaterOrEqual(t, r, 0.0, "t=%v", d)
		if d >= 10 {
			require.Zero(t, r, "t=%v", d)
		}
	}

	s = NewSchedule(4.1, []model.Stage{{StartDay: 10, ReductionRate: 8, Contained: 0.9}})
	for d := 12.0; d <= 300; d += 0.5 {
		require.Zero(t, s.At(d), "t=%v", d)
	}
}

func TestSchedule_BoundaryStaysWithinOneDayOfRamp(t *testing.T) {
	stages := []model.Stage{
		{StartDay: 5, ReductionRate: 0.3, Contained: 0.2},
		{StartDay: 15, ReductionRate: 0.3, Contained: 0.2},
	}
	s := NewSchedule(4, stages)
	slope := 2 * 0.3 / 30 * 0.2

	// the new regime is anchored on the value one day before it starts
	assert.InDelta(t, s.At(14), s.At(15)+slope, 1e-12)
	assert.InDelta(t, s.At(15-1e-9), s.At(15), slope+1e-9)
}

func TestSchedule_MatchesRecursive(t *testing.T) {
	presets, err := model.Presets()
	require.NoError(t, err)

	for _, p := range presets {
		sc := p.Scenario
		s := NewSchedule(sc.R0, sc.Stages)
		for d := 0.0; d <= float64(sc.Horizon); d += 0.1 {
			want := Recursive(d, sc.R0, sc.Stages)
			require.InDelta(t, want, s.At(d), 1e-12, "%s t=%v", p.Name, d)
		}
	}
}

func TestConstantAndFunc(t *testing.T) {
	var r Reproduction = Constant(1.5)
	assert.Equal(t, 1.5, r.At(99))

	r = Func(func(t float64) float64 { return t / 2 })
	assert.Equal(t, []float64{0, 0.5, 1}, Sample(r, 2))
}

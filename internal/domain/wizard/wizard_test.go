package wizard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firesim/internal/domain/scenario"
	"firesim/internal/domain/wizard"
)

var overloadSwitches = []bool{true, true, true, true, true, false}

var correctWhys = wizard.Whys{
	First:  scenario.Whys[0].Answer,
	Second: scenario.Whys[1].Answer,
}

// TestProgress_FullRun walks the wizard from INTRO to REPORT.
func TestProgress_FullRun(t *testing.T) {
	p := wizard.NewProgress()
	assert.Equal(t, wizard.StepIntro, p.Step)
	assert.Equal(t, 0, p.Percent())

	require.NoError(t, p.Start())
	assert.Equal(t, wizard.StepSituation, p.Step)
	assert.Equal(t, 20, p.Percent())

	require.NoError(t, p.SubmitFacts(scenario.FactPool[:3]))
	assert.Equal(t, wizard.StepDefinition, p.Step)

	require.NoError(t, p.SubmitGap(wizard.Gap{Current: "  생산 중단  ", Ideal: "납기 내 생산"}))
	assert.Equal(t, "생산 중단", p.Gap.Current)
	assert.Equal(t, wizard.StepAnalysis, p.Step)

	require.NoError(t, p.SetMachines(overloadSwitches))
	assert.Equal(t, 17500, p.TotalWatts())
	require.NoError(t, p.SubmitAnalysis(correctWhys))
	assert.Equal(t, wizard.StepSolution, p.Step)
	assert.Equal(t, 2, p.CorrectWhys())

	require.NoError(t, p.SubmitSolutions(wizard.Solutions{ShortTerm: "외주 생산", Prevention: "소화기 점검"}))
	assert.Equal(t, wizard.StepReport, p.Step)
	assert.Equal(t, 100, p.Percent())
}

func TestProgress_SkipToReport(t *testing.T) {
	p := wizard.NewProgress()
	require.NoError(t, p.SkipToReport())
	assert.Equal(t, wizard.StepReport, p.Step)

	assert.ErrorIs(t, p.SkipToReport(), wizard.ErrWrongStep)
	assert.ErrorIs(t, p.Start(), wizard.ErrWrongStep)

	p.BackToIntro()
	assert.Equal(t, wizard.StepIntro, p.Step)
	require.NoError(t, p.Start())
}

func TestProgress_BackToIntroKeepsData(t *testing.T) {
	p := wizard.NewProgress()
	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitFacts(scenario.FactPool[:4]))

	p.BackToIntro()
	assert.Equal(t, wizard.StepIntro, p.Step)
	assert.Len(t, p.Facts, 4)
}

func TestProgress_SubmitFacts(t *testing.T) {
	tests := []struct {
		name    string
		facts   []string
		wantErr error
	}{
		{"three facts", scenario.FactPool[:3], nil},
		{"all facts", scenario.FactPool, nil},
		{"two facts", scenario.FactPool[:2], wizard.ErrTooFewFacts},
		{"none", nil, wizard.ErrTooFewFacts},
		{"duplicates do not count", []string{scenario.FactPool[0], scenario.FactPool[0], scenario.FactPool[1]}, wizard.ErrTooFewFacts},
		{"unknown fact", []string{scenario.FactPool[0], scenario.FactPool[1], "invented"}, wizard.ErrUnknownFact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := wizard.NewProgress()
			require.NoError(t, p.Start())
			err := p.SubmitFacts(tt.facts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, wizard.StepSituation, p.Step)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, wizard.StepDefinition, p.Step)
		})
	}
}

func TestProgress_SubmitGap(t *testing.T) {
	tests := []struct {
		name    string
		gap     wizard.Gap
		wantErr bool
	}{
		{"both", wizard.Gap{Current: "a", Ideal: "b"}, false},
		{"missing ideal", wizard.Gap{Current: "a"}, true},
		{"missing current", wizard.Gap{Ideal: "b"}, true},
		{"whitespace only", wizard.Gap{Current: " ", Ideal: "\n"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := wizard.Progress{Step: wizard.StepDefinition}
			err := p.SubmitGap(tt.gap)
			if tt.wantErr {
				assert.ErrorIs(t, err, wizard.ErrIncompleteGap)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProgress_SubmitAnalysis(t *testing.T) {
	t.Run("under the limit", func(t *testing.T) {
		p := wizard.NewProgress()
		p.Step = wizard.StepAnalysis
		assert.ErrorIs(t, p.SubmitAnalysis(correctWhys), wizard.ErrNotOverloaded)
	})

	t.Run("missing why", func(t *testing.T) {
		p := wizard.NewProgress()
		p.Step = wizard.StepAnalysis
		require.NoError(t, p.SetMachines(overloadSwitches))
		err := p.SubmitAnalysis(wizard.Whys{First: scenario.Whys[0].Answer})
		assert.ErrorIs(t, err, wizard.ErrWhyUnanswered)
	})

	t.Run("wrong but valid answers advance", func(t *testing.T) {
		p := wizard.NewProgress()
		p.Step = wizard.StepAnalysis
		require.NoError(t, p.SetMachines(overloadSwitches))
		whys := wizard.Whys{First: scenario.Whys[0].Options[0], Second: scenario.Whys[1].Options[0]}
		require.NoError(t, p.SubmitAnalysis(whys))
		assert.Equal(t, 0, p.CorrectWhys())
	})

	t.Run("machine table size mismatch", func(t *testing.T) {
		p := wizard.NewProgress()
		p.Step = wizard.StepAnalysis
		assert.ErrorIs(t, p.SetMachines([]bool{true}), wizard.ErrInvalidMachine)
	})
}

func TestProgress_WrongStep(t *testing.T) {
	p := wizard.NewProgress()
	assert.ErrorIs(t, p.SubmitFacts(scenario.FactPool), wizard.ErrWrongStep)
	assert.ErrorIs(t, p.SubmitGap(wizard.Gap{Current: "a", Ideal: "b"}), wizard.ErrWrongStep)
	assert.ErrorIs(t, p.SetMachines(overloadSwitches), wizard.ErrWrongStep)
	assert.ErrorIs(t, p.SubmitAnalysis(correctWhys), wizard.ErrWrongStep)
	assert.ErrorIs(t, p.SubmitSolutions(wizard.Solutions{}), wizard.ErrWrongStep)
}

func TestStep(t *testing.T) {
	step, err := wizard.ParseStep("ANALYSIS")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepAnalysis, step)
	assert.Equal(t, 60, step.Percent())

	_, err = wizard.ParseStep("FINISHED")
	assert.ErrorIs(t, err, wizard.ErrInvalidStep)

	assert.False(t, wizard.StepIntro.HasGuide())
	assert.True(t, wizard.StepSituation.HasGuide())
	assert.False(t, wizard.StepReport.HasGuide())
}

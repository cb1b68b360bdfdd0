// Package wizard implements the linear five-step incident analysis flow.
//
// A team moves INTRO → SITUATION → DEFINITION → ANALYSIS → SOLUTION → REPORT.
// Each forward move is gated by the data collected on the current step, and
// everything collected accumulates in a single Progress value. From INTRO a
// team may jump straight to REPORT, and from any step it may return to INTRO
// without losing data.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"firesim/internal/domain/scenario"
)

// Step identifies a wizard screen.
type Step string

// Wizard steps, in order.
const (
	StepIntro      Step = "INTRO"
	StepSituation  Step = "SITUATION"
	StepDefinition Step = "DEFINITION"
	StepAnalysis   Step = "ANALYSIS"
	StepSolution   Step = "SOLUTION"
	StepReport     Step = "REPORT"
)

// Steps lists every step in wizard order.
var Steps = []Step{StepIntro, StepSituation, StepDefinition, StepAnalysis, StepSolution, StepReport}

// Domain errors
var (
	ErrInvalidStep    = errors.New("unknown wizard step")
	ErrWrongStep      = errors.New("action is not available on the current step")
	ErrTooFewFacts    = fmt.Errorf("select at least %d key facts", scenario.MinFacts)
	ErrUnknownFact    = errors.New("fact is not part of the scenario")
	ErrIncompleteGap  = errors.New("both the current and the ideal state are required")
	ErrNotOverloaded  = fmt.Errorf("reproduce the overload: active load must exceed %dW", scenario.MaxPowerWatts)
	ErrWhyUnanswered  = errors.New("answer every why question")
	ErrInvalidMachine = errors.New("machine table does not match the scenario")
)

// ParseStep converts a string into a Step.
// PRE: none
// POST: returns ErrInvalidStep for unknown names
func ParseStep(s string) (Step, error) {
	for _, step := range Steps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", ErrInvalidStep
}

// Index returns the position of the step in Steps, or -1.
func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// Percent returns the progress bar value for the step: index / (len(Steps)-1) * 100.
func (s Step) Percent() int {
	idx := s.Index()
	if idx < 0 {
		return 0
	}
	return idx * 100 / (len(Steps) - 1)
}

// HasGuide reports whether a learning guide is shown for the step.
func (s Step) HasGuide() bool {
	_, ok := scenario.GuideFor(string(s))
	return ok
}

// Gap is the As-is / To-be problem definition.
type Gap struct {
	Current string `json:"current"`
	Ideal   string `json:"ideal"`
}

// Whys holds the answers to the two root-cause questions.
type Whys struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Solutions holds the short-term and prevention plans.
type Solutions struct {
	ShortTerm  string `json:"shortTerm"`
	Prevention string `json:"prevention"`
}

// Progress is the data a team has collected and the step it is on.
type Progress struct {
	Step      Step               `json:"step"`
	Facts     []string           `json:"facts"`
	Gap       Gap                `json:"gap"`
	Machines  []scenario.Machine `json:"machines"`
	Whys      Whys               `json:"whys"`
	Solutions Solutions          `json:"solutions"`
}

// NewProgress returns a progress value positioned at INTRO with the scenario's starting power table.
func NewProgress() Progress {
	return Progress{
		Step:     StepIntro,
		Machines: scenario.InitialMachines(),
	}
}

// Percent returns the progress bar value for the current step.
func (p *Progress) Percent() int {
	return p.Step.Percent()
}

// TotalWatts returns the active load of the recorded power table.
func (p *Progress) TotalWatts() int {
	return scenario.TotalWatts(p.Machines)
}

// Start moves from INTRO to SITUATION.
// PRE: Step == INTRO
// POST: Step == SITUATION
func (p *Progress) Start() error {
	if p.Step != StepIntro {
		return ErrWrongStep
	}
	p.Step = StepSituation
	return nil
}

// SkipToReport jumps from INTRO straight to REPORT.
// PRE: Step == INTRO
// POST: Step == REPORT; collected data is untouched
func (p *Progress) SkipToReport() error {
	if p.Step != StepIntro {
		return ErrWrongStep
	}
	p.Step = StepReport
	return nil
}

// BackToIntro returns to INTRO from any step.
// POST: Step == INTRO; collected data is untouched
func (p *Progress) BackToIntro() {
	p.Step = StepIntro
}

// SubmitFacts records the selected facts and moves to DEFINITION.
// Duplicates are collapsed before counting.
// PRE: Step == SITUATION
// POST: on success Facts holds at least scenario.MinFacts distinct pool entries and Step == DEFINITION
func (p *Progress) SubmitFacts(facts []string) error {
	if p.Step != StepSituation {
		return ErrWrongStep
	}
	seen := make(map[string]bool, len(facts))
	var unique []string
	for _, f := range facts {
		if !scenario.IsFact(f) {
			return ErrUnknownFact
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		unique = append(unique, f)
	}
	if len(unique) < scenario.MinFacts {
		return ErrTooFewFacts
	}
	p.Facts = unique
	p.Step = StepDefinition
	return nil
}

// SubmitGap records the problem definition and moves to ANALYSIS.
// PRE: Step == DEFINITION
// POST: on success Gap fields are trimmed and non-empty and Step == ANALYSIS
func (p *Progress) SubmitGap(gap Gap) error {
	if p.Step != StepDefinition {
		return ErrWrongStep
	}
	gap.Current = strings.TrimSpace(gap.Current)
	gap.Ideal = strings.TrimSpace(gap.Ideal)
	if gap.Current == "" || gap.Ideal == "" {
		return ErrIncompleteGap
	}
	p.Gap = gap
	p.Step = StepAnalysis
	return nil
}

// SetMachines records the on/off state of the power table.
// Only the Active flags are taken from the input; names, counts and watts
// always come from the scenario.
// PRE: Step == ANALYSIS; active has one entry per scenario machine
// POST: Machines reflects the requested switches
func (p *Progress) SetMachines(active []bool) error {
	if p.Step != StepAnalysis {
		return ErrWrongStep
	}
	machines := scenario.InitialMachines()
	if len(active) != len(machines) {
		return ErrInvalidMachine
	}
	for i := range machines {
		machines[i].Active = active[i]
	}
	p.Machines = machines
	return nil
}

// SubmitAnalysis records the why answers and moves to SOLUTION.
// The overload must already be reproduced on the power table.
// PRE: Step == ANALYSIS
// POST: on success Whys holds valid options and Step == SOLUTION
func (p *Progress) SubmitAnalysis(whys Whys) error {
	if p.Step != StepAnalysis {
		return ErrWrongStep
	}
	if !scenario.IsOverloaded(p.Machines) {
		return ErrNotOverloaded
	}
	if !scenario.Whys[0].IsOption(whys.First) || !scenario.Whys[1].IsOption(whys.Second) {
		return ErrWhyUnanswered
	}
	p.Whys = whys
	p.Step = StepSolution
	return nil
}

// SubmitSolutions records the plans and moves to REPORT. Empty plans are allowed.
// PRE: Step == SOLUTION
// POST: Step == REPORT
func (p *Progress) SubmitSolutions(s Solutions) error {
	if p.Step != StepSolution {
		return ErrWrongStep
	}
	p.Solutions = Solutions{
		ShortTerm:  strings.TrimSpace(s.ShortTerm),
		Prevention: strings.TrimSpace(s.Prevention),
	}
	p.Step = StepReport
	return nil
}

// CorrectWhys counts how many why answers match the expected root causes.
func (p *Progress) CorrectWhys() int {
	n := 0
	if scenario.Whys[0].IsCorrect(p.Whys.First) {
		n++
	}
	if scenario.Whys[1].IsCorrect(p.Whys.Second) {
		n++
	}
	return n
}

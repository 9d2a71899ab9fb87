// Package achievement defines the challenge rules evaluated when a run finishes.
//
// Rules are pure predicates over an athlete's aggregates. Persisting the
// resulting challenge at most once per athlete is the caller's job.
package achievement

// Default rule parameters.
const (
	DefaultRunCountMilestone   = 10
	DefaultRunCountChallenge   = "Run 10 times!"
	DefaultDistanceMilestoneKM = 50.0
	DefaultDistanceChallenge   = "Run 50 kilometers!"
)

// Stats are the aggregates rules are evaluated against.
type Stats struct {
	FinishedRuns    int
	TotalDistanceKM float64
}

// Rule is one named achievement condition.
type Rule interface {
	// Key is a stable label for metrics and logs.
	Key() string
	// Name is the challenge full_name created when the rule holds.
	Name() string
	Satisfied(s Stats) bool
}

// RunCount holds when the finished run count equals Milestone exactly. It
// fires once, at the crossing, and not again on later runs.
type RunCount struct {
	Milestone int
	Title     string
}

func (r RunCount) Key() string  { return "run_count" }
func (r RunCount) Name() string { return r.Title }

func (r RunCount) Satisfied(s Stats) bool {
	return s.FinishedRuns == r.Milestone
}

// Distance holds when the cumulative distance reaches MilestoneKM.
type Distance struct {
	MilestoneKM float64
	Title       string
}

func (r Distance) Key() string  { return "distance" }
func (r Distance) Name() string { return r.Title }

func (r Distance) Satisfied(s Stats) bool {
	return s.TotalDistanceKM >= r.MilestoneKM
}

// Evaluator holds the ordered rule set.
type Evaluator struct {
	rules []Rule
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(e *Evaluator) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// NewEvaluator returns an evaluator with the run-count rule followed by the
// distance rule.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		rules: []Rule{
			RunCount{Milestone: DefaultRunCountMilestone, Title: DefaultRunCountChallenge},
			Distance{MilestoneKM: DefaultDistanceMilestoneKM, Title: DefaultDistanceChallenge},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule set in evaluation order.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Qualifying returns, in order, the rules satisfied by s.
func (e *Evaluator) Qualifying(s Stats) []Rule {
	var out []Rule
	for _, r := range e.rules {
		if r.Satisfied(s) {
			out = append(out, r)
		}
	}
	return out
}

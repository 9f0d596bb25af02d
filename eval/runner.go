package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/alertflow"
	"github.com/randalmurphal/alertflow/alert"
	"github.com/randalmurphal/alertflow/artifact"
)

// Check names as they appear in reports.
const (
	CheckValidSource        = "is_valid_source"
	CheckTicketCreated      = "ticket_created"
	CheckHasTitle           = "has_title"
	CheckHasDescription     = "has_description"
	CheckHasLabels          = "has_labels"
	CheckLabelsContain      = "labels_contain"
	CheckTitleMentionsError = "title_mentions_error"
)

// checkOrder fixes the summary print order.
var checkOrder = []string{
	CheckValidSource,
	CheckTicketCreated,
	CheckHasTitle,
	CheckHasDescription,
	CheckHasLabels,
	CheckLabelsContain,
	CheckTitleMentionsError,
}

// errorTerms are the words the title-quality heuristic accepts as
// evidence that a title names the underlying error.
var errorTerms = []string{"error", "type", "undefined", "null", "exception", "fail"}

// Target runs one message through the pipeline to a terminal state.
// *alertflow.Machine satisfies it.
type Target interface {
	Run(ctx context.Context, msg alert.Message) (alertflow.WorkflowState, error)
}

// CheckResult records one expected-versus-actual comparison.
type CheckResult struct {
	Name     string `json:"name"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
}

// CaseResult is the outcome of one golden case. A case passes only when
// every check passed and the run itself did not error.
type CaseResult struct {
	CaseID      string        `json:"caseId"`
	Description string        `json:"description"`
	Passed      bool          `json:"passed"`
	Checks      []CheckResult `json:"checks"`
	Error       string        `json:"error,omitempty"`
}

// CheckStats aggregates one check across all cases.
type CheckStats struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Report is the aggregate outcome of an evaluation run.
type Report struct {
	Timestamp  time.Time             `json:"timestamp"`
	Total      int                   `json:"total"`
	Passed     int                   `json:"passed"`
	Failed     int                   `json:"failed"`
	PassRate   float64               `json:"passRate"`
	CheckStats map[string]CheckStats `json:"checkStats"`
	Results    []CaseResult          `json:"results"`
}

// FailedCases lists the ids of cases that did not pass.
func (rep *Report) FailedCases() []string {
	var out []string
	for _, res := range rep.Results {
		if !res.Passed {
			out = append(out, res.CaseID)
		}
	}
	return out
}

// Runner scores a pipeline against golden cases.
type Runner struct {
	target    Target
	artifacts *artifact.Manager
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithArtifacts persists each report through am, keyed by a timestamped
// eval run id.
func WithArtifacts(am *artifact.Manager) RunnerOption {
	return func(r *Runner) { r.artifacts = am }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner that scores target.
func NewRunner(target Target, opts ...RunnerOption) *Runner {
	r := &Runner{
		target: target,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run feeds every case through the target and scores the terminal
// states. Case-level failures land in the report; the returned error is
// non-nil only when the context ends before the set completes.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	rep := &Report{
		Timestamp:  time.Now(),
		CheckStats: make(map[string]CheckStats),
	}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := r.runCase(ctx, c)
		rep.Results = append(rep.Results, res)
		if res.Passed {
			rep.Passed++
		} else {
			rep.Failed++
		}
		for _, chk := range res.Checks {
			stats := rep.CheckStats[chk.Name]
			if chk.Passed {
				stats.Passed++
			} else {
				stats.Failed++
			}
			rep.CheckStats[chk.Name] = stats
		}

		r.logger.Info("case scored",
			"case", c.ID,
			"passed", res.Passed,
			"checks", len(res.Checks))
	}

	rep.Total = len(rep.Results)
	if rep.Total > 0 {
		rep.PassRate = float64(rep.Passed) / float64(rep.Total) * 100
	}

	if r.artifacts != nil {
		runID := reportRunID(rep.Timestamp)
		if err := r.artifacts.SaveJSON(runID, artifact.NameEvalReport, rep); err != nil {
			r.logger.Error("saving eval report", "run", runID, "error", err)
		} else {
			r.logger.Info("eval report saved", "run", runID)
		}
	}

	return rep, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	res := CaseResult{CaseID: c.ID, Description: c.Description, Passed: true}

	state, err := r.target.Run(ctx, c.Input())
	if err != nil {
		res.Error = err.Error()
		res.Passed = false
		return res
	}

	score(&res, c.Expect, state)
	return res
}

// score compares the terminal state against exp. The five outcome checks
// always run; labels_contain and the title heuristic only when the
// expectation asks for them.
func score(res *CaseResult, exp Expectation, state alertflow.WorkflowState) {
	info := state.TicketInfo

	addCheck(res, CheckValidSource, exp.IsValidSource, state.IsValidSource)
	addCheck(res, CheckTicketCreated, exp.TicketCreated, state.TicketID != "")
	addCheck(res, CheckHasTitle, exp.HasTitle,
		info != nil && strings.TrimSpace(info.Title) != "")
	addCheck(res, CheckHasDescription, exp.HasDescription,
		info != nil && strings.TrimSpace(info.Description) != "")
	addCheck(res, CheckHasLabels, exp.HasLabels,
		info != nil && len(info.Labels) > 0)

	if len(exp.LabelsContain) > 0 {
		var actual []string
		passed := info != nil
		if info != nil {
			actual = info.Labels
			for _, want := range exp.LabelsContain {
				if !info.HasLabel(want) {
					passed = false
					break
				}
			}
		}
		res.Checks = append(res.Checks, CheckResult{
			Name:     CheckLabelsContain,
			Expected: exp.LabelsContain,
			Actual:   actual,
			Passed:   passed,
		})
		if !passed {
			res.Passed = false
		}
	}

	if exp.TitleMentionsError {
		title := ""
		if info != nil {
			title = info.Title
		}
		addCheck(res, CheckTitleMentionsError, true, TitleMentionsError(title))
	}
}

func addCheck(res *CaseResult, name string, expected, actual bool) {
	passed := expected == actual
	res.Checks = append(res.Checks, CheckResult{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
	})
	if !passed {
		res.Passed = false
	}
}

// TitleMentionsError reports whether a ticket title names the underlying
// error, judged by a fixed term list. Matching is case-insensitive.
func TitleMentionsError(title string) bool {
	t := strings.ToLower(title)
	for _, term := range errorTerms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

func reportRunID(ts time.Time) string {
	return "eval-" + ts.UTC().Format("20060102-150405")
}

// WriteSummary renders a human-readable report summary.
func WriteSummary(w io.Writer, rep *Report) error {
	sep := strings.Repeat("=", 60)

	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Total: %d | Passed: %d | Failed: %d | Pass Rate: %.1f%%\n",
		rep.Total, rep.Passed, rep.Failed, rep.PassRate)

	fmt.Fprintln(w, "\nCheck Statistics:")
	for _, name := range checkOrder {
		stats, ok := rep.CheckStats[name]
		if !ok {
			continue
		}
		total := stats.Passed + stats.Failed
		rate := 0.0
		if total > 0 {
			rate = float64(stats.Passed) / float64(total) * 100
		}
		fmt.Fprintf(w, "  %s: %d/%d (%.0f%%)\n", name, stats.Passed, total, rate)
	}

	if failed := rep.FailedCases(); len(failed) > 0 {
		fmt.Fprintln(w, "\nFailed Cases:")
		for _, res := range rep.Results {
			if !res.Passed {
				fmt.Fprintf(w, "  - %s: %s\n", res.CaseID, res.Description)
			}
		}
	}

	fmt.Fprintln(w, sep)
	return nil
}

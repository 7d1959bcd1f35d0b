package validate

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/elowenm/gradescope-regrader/gradescope"
)

// Reporter receives user-facing orchestration events. The engine has no
// direct dependency on a presentation layer; implementations must tolerate
// concurrent calls to the per-submission methods.
type Reporter interface {
	RoundStarted(round, pending int)
	SubmissionResolved(rec SubmissionRecord, status string)
	SubmissionRequeued(rec SubmissionRecord, status string)
	RoundSummary(round, resolved, pending int)
	Waiting(d time.Duration)
	DryRun()
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) RoundStarted(int, int) {}

func (NopReporter) SubmissionResolved(SubmissionRecord, string) {}

func (NopReporter) SubmissionRequeued(SubmissionRecord, string) {}

func (NopReporter) RoundSummary(int, int, int) {}

func (NopReporter) Waiting(time.Duration) {}

func (NopReporter) DryRun() {}

// ConsoleReporter prints one colored line per event: green for processed
// submissions, red for failed ones, violet for anything the autograder
// reports that we do not recognize. A mutex keeps lines from concurrent
// workers whole.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer

	processed lipgloss.Style
	failed    lipgloss.Style
	unknown   lipgloss.Style
	notice    lipgloss.Style
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:       out,
		processed: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		unknown:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (r *ConsoleReporter) RoundStarted(round, pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "Validating %d submissions (round %d)...\n", pending, round)
}

func (r *ConsoleReporter) SubmissionResolved(rec SubmissionRecord, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.processed.Render(fmt.Sprintf("%s: %s (%s)", status, rec.Name, rec.Email)))
}

func (r *ConsoleReporter) SubmissionRequeued(rec SubmissionRecord, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	style := r.unknown
	if gradescope.Classify(status) == gradescope.StatusRecoverable {
		style = r.failed
	}
	fmt.Fprintln(r.out, style.Render(fmt.Sprintf("%s: %s (%s)", status, rec.Name, rec.Email)))
}

func (r *ConsoleReporter) RoundSummary(round, resolved, pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := resolved + pending
	if pending == 0 {
		fmt.Fprintln(r.out, r.processed.Render(fmt.Sprintf("All %d submissions succeeded", total)))
		return
	}
	fmt.Fprintln(r.out, r.failed.Render(fmt.Sprintf("%d/%d submissions failed", pending, total)))
}

func (r *ConsoleReporter) Waiting(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.notice.Render(fmt.Sprintf("Waiting %s for submissions to regrade...", d)))
}

func (r *ConsoleReporter) DryRun() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.notice.Render("Dry run: no regrade requests will be sent"))
}

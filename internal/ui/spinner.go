package ui

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// ProgressReporter reports progress while evidence is collected and a report is rendered.
type ProgressReporter interface {
	Update(message string)
	Stop()
}

// SpinnerProgress implements ProgressReporter using briandowns/spinner
type SpinnerProgress struct {
	spinner *spinner.Spinner
}

// NewSpinnerProgress creates a spinner writing to w, usually stderr so that
// the rendered report on stdout stays clean.
func NewSpinnerProgress(w io.Writer) *SpinnerProgress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Prefix = "  "
	s.Color("cyan", "bold")

	return &SpinnerProgress{
		spinner: s,
	}
}

func (sp *SpinnerProgress) Start(message string) {
	sp.spinner.Suffix = "  " + message
	sp.spinner.Start()
}

func (sp *SpinnerProgress) Update(message string) {
	sp.spinner.Lock()
	sp.spinner.Suffix = "  " + message
	sp.spinner.Unlock()
}

func (sp *SpinnerProgress) Stop() {
	if sp.spinner.Active() {
		sp.spinner.Stop()
	}
}

// NoOpProgress discards progress, for JSON output and the API.
type NoOpProgress struct{}

func (NoOpProgress) Update(string) {}
func (NoOpProgress) Stop()         {}

var (
	_ ProgressReporter = (*SpinnerProgress)(nil)
	_ ProgressReporter = NoOpProgress{}
)

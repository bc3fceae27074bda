package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/trebuchet-org/txq/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// ExecProgress reports queue execution. Interactive sessions get a
// spinner per transaction; otherwise every event is printed as a line.
type ExecProgress struct {
	out         io.Writer
	interactive bool
	spinner     *SpinnerProgressReporter
}

// NewExecProgress creates an execution progress reporter
func NewExecProgress(out io.Writer, interactive bool) *ExecProgress {
	if out == nil {
		out = os.Stderr
	}
	return &ExecProgress{
		out:         out,
		interactive: interactive,
		spinner:     NewSpinnerProgressReporter(out),
	}
}

// OnProgress handles progress events
func (p *ExecProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Stage == string(usecase.StageItemStarting) {
		p.spinner.Reset()
		fmt.Fprintf(p.out, "\n%s %s\n",
			color.New(color.Faint).Sprintf("[%d/%d]", event.Current, event.Total),
			color.New(color.Bold).Sprint(event.Message))
		return
	}

	if !p.interactive {
		if event.Message != "" {
			fmt.Fprintf(p.out, "  %s: %s\n", stageLabel(event.Stage), event.Message)
		}
		return
	}
	p.spinner.OnProgress(ctx, event)
}

// stageLabel title-cases a stage name for display
func stageLabel(stage string) string {
	return titleCaser.String(strings.ReplaceAll(stage, "_", " "))
}

// Info forwards info messages to the spinner
func (p *ExecProgress) Info(message string) {
	if !p.interactive {
		fmt.Fprintln(p.out, message)
		return
	}
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *ExecProgress) Error(message string) {
	if !p.interactive {
		fmt.Fprintln(p.out, message)
		return
	}
	p.spinner.Error(message)
}

// Ensure ExecProgress implements ProgressSink
var _ usecase.ProgressSink = (*ExecProgress)(nil)

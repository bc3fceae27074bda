package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// SpinnerProgressReporter renders execution stages of the current
// transaction as a spinner line: ✓ Approving (1s) → ● Simulating
type SpinnerProgressReporter struct {
	out          io.Writer
	spinner      *spinner.Spinner
	stages       []stageInfo
	currentStage usecase.ExecutionStage
}

type stageInfo struct {
	Stage     usecase.ExecutionStage
	StartTime time.Time
	EndTime   time.Time
	Status    string
}

// NewSpinnerProgressReporter creates a spinner reporter writing to out
// (stderr when nil)
func NewSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	if out == nil {
		out = os.Stderr
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
	}
}

// Reset clears the stage history before the next transaction
func (r *SpinnerProgressReporter) Reset() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
	r.stages = nil
	r.currentStage = ""
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	stage := usecase.ExecutionStage(event.Stage)
	switch stage {
	case usecase.StageApproving, usecase.StageSimulating, usecase.StageSubmitting:
		r.enter(stage)
		if !r.spinner.Active() {
			r.spinner.Start()
		}
		r.updateSpinnerDisplay()

	case usecase.StageCompleted:
		r.finish("completed")
		r.spinner.Stop()
		fmt.Fprintf(r.out, "%s %s\n", color.GreenString("✓"), event.Message)

	case usecase.StageFailed:
		r.finish("failed")
		r.spinner.Stop()
		fmt.Fprintf(r.out, "%s %s\n", color.RedString("✗"), event.Message)

	default:
		if event.Spinner {
			if !r.spinner.Active() {
				r.spinner.Start()
			}
			r.spinner.Suffix = " " + event.Message
		} else if r.spinner.Active() {
			r.spinner.Stop()
		}
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.pause(func() { color.New(color.FgCyan).Fprintln(r.out, message) })
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.pause(func() { color.New(color.FgRed).Fprintln(r.out, message) })
}

func (r *SpinnerProgressReporter) pause(fn func()) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	fn()
	if wasActive {
		r.spinner.Start()
	}
}

func (r *SpinnerProgressReporter) enter(stage usecase.ExecutionStage) {
	if r.currentStage == stage {
		return
	}
	r.finish("completed")
	r.currentStage = stage
	r.stages = append(r.stages, stageInfo{
		Stage:     stage,
		StartTime: time.Now(),
		Status:    "running",
	})
}

// finish closes the running stage, if any
func (r *SpinnerProgressReporter) finish(status string) {
	if len(r.stages) == 0 {
		return
	}
	last := &r.stages[len(r.stages)-1]
	if last.Status == "running" {
		last.EndTime = time.Now()
		last.Status = status
	}
}

// updateSpinnerDisplay updates the spinner suffix with stage information
func (r *SpinnerProgressReporter) updateSpinnerDisplay() {
	var display string

	for i, stage := range r.stages {
		var icon string
		var stageColor *color.Color

		switch stage.Status {
		case "completed":
			icon = "✓"
			stageColor = color.New(color.FgGreen)
		case "running":
			icon = "●"
			stageColor = color.New(color.FgYellow)
		case "failed":
			icon = "✗"
			stageColor = color.New(color.FgRed)
		default:
			icon = "○"
			stageColor = color.New(color.FgWhite)
		}

		duration := ""
		if !stage.EndTime.IsZero() {
			duration = fmt.Sprintf(" (%s)", stage.EndTime.Sub(stage.StartTime).Round(time.Millisecond))
		}

		if i > 0 {
			display += " → "
		}
		display += fmt.Sprintf("%s %s%s", icon, stageColor.Sprint(stageLabel(string(stage.Stage))), duration)
	}

	r.spinner.Suffix = " " + display
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)

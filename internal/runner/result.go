package runner

import "time"

// Step identifies a point in an environment's command sequence.
type Step string

const (
	StepProvision Step = "provision"
	StepBootstrap Step = "bootstrap"
	StepTest      Step = "test"
	StepDone      Step = "done"
)

// Result is the outcome of one environment's attempt. Step records
// where the attempt ended: StepDone on success, otherwise the step that
// failed and halted the sequence.
type Result struct {
	Environment  string
	Step         Step
	ExitCode     int
	CoveragePath string
	Duration     time.Duration
	Resumed      bool
	Err          error
}

// Failed reports whether the environment's attempt failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

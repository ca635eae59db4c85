package disk

import "fmt"

// Step names a provisioning step for error reporting.
type Step string

const (
	StepDirectory Step = "ensure directory"
	StepDisk      Step = "ensure disk"
	StepAttach    Step = "attach disk"
	StepFormat    Step = "schedule format"
)

// StepError is returned when a provisioning step fails. The run is
// aborted at the failing step; earlier steps are not rolled back.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

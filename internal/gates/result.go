package gates

import "fmt"

// Kind tags the outcome of one pipeline stage
type Kind int

const (
	// KindPass lets the candidate through to the next stage
	KindPass Kind = iota
	// KindHardBlock rejects the candidate unconditionally
	KindHardBlock
	// KindSoftFail rejects unless the composite score clears the soft minimum
	KindSoftFail
	// KindNotReady means the input series cannot support the stage yet
	KindNotReady
)

func (k Kind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindHardBlock:
		return "hard_block"
	case KindSoftFail:
		return "soft_fail"
	case KindNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a gate stage. Reasons are short snake_case
// diagnostic strings such as "too_extended" or "htf_direction_mismatch";
// they are not errors.
type Result struct {
	Kind   Kind
	Stage  string
	Reason string
}

// Pass returns a passing result for the stage
func Pass(stage string) Result {
	return Result{Kind: KindPass, Stage: stage}
}

// HardBlock returns an unconditional rejection
func HardBlock(stage, reason string) Result {
	return Result{Kind: KindHardBlock, Stage: stage, Reason: reason}
}

// SoftFail returns a score-overridable rejection
func SoftFail(stage, reason string) Result {
	return Result{Kind: KindSoftFail, Stage: stage, Reason: reason}
}

// NotReady signals insufficient input data for the stage
func NotReady(stage, reason string) Result {
	return Result{Kind: KindNotReady, Stage: stage, Reason: reason}
}

// Passed reports whether the stage let the candidate through
func (r Result) Passed() bool { return r.Kind == KindPass }

// Rejected reports whether the result is any form of rejection
func (r Result) Rejected() bool { return r.Kind != KindPass }

func (r Result) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s:%s", r.Stage, r.Kind)
	}
	return fmt.Sprintf("%s:%s(%s)", r.Stage, r.Kind, r.Reason)
}

package types

import "fmt"

// Function identifies a named scalar or sequence function.
type Function int

const (
	FunctionInvalid Function = iota

	FunctionAbs         // abs(x)
	FunctionRound       // round(x, decimals)
	FunctionFillNull    // fill_null(x, fill)
	FunctionCoalesce    // coalesce(x, y, ...)
	FunctionCumSum      // cum_sum(x)
	FunctionShift       // shift(x, n)
	FunctionRollingSum  // rolling_sum(x, window, min_periods)
	FunctionRollingMean // rolling_mean(x, window, min_periods)
	FunctionRollingMin  // rolling_min(x, window, min_periods)
	FunctionRollingMax  // rolling_max(x, window, min_periods)
	FunctionContains    // contains(x, pattern)
)

var functionStrings = map[Function]string{
	FunctionInvalid: "invalid",

	FunctionAbs:         "abs",
	FunctionRound:       "round",
	FunctionFillNull:    "fill_null",
	FunctionCoalesce:    "coalesce",
	FunctionCumSum:      "cum_sum",
	FunctionShift:       "shift",
	FunctionRollingSum:  "rolling_sum",
	FunctionRollingMean: "rolling_mean",
	FunctionRollingMin:  "rolling_min",
	FunctionRollingMax:  "rolling_max",
	FunctionContains:    "contains",
}

func (f Function) String() string {
	if s, ok := functionStrings[f]; ok {
		return s
	}
	return fmt.Sprintf("Function(%d)", f)
}

// IsSequence reports whether the output of f at one row depends on other
// rows. Such functions cannot be evaluated on arbitrary chunks of a column.
func (f Function) IsSequence() bool {
	switch f {
	case FunctionCumSum, FunctionShift, FunctionRollingSum, FunctionRollingMean, FunctionRollingMin, FunctionRollingMax:
		return true
	}
	return false
}

// IsRolling reports whether f is a fixed-window rolling function.
func (f Function) IsRolling() bool {
	return f >= FunctionRollingSum && f <= FunctionRollingMax
}

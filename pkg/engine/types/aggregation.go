package types

import (
	"fmt"
	"strings"
)

// AggregationType denotes the aggregation applied to the values of a group.
type AggregationType int

const (
	AggregationTypeInvalid AggregationType = iota

	AggregationTypeSum      // Sum of non-null values.
	AggregationTypeMean     // Mean of non-null values.
	AggregationTypeMin      // Minimum non-null value.
	AggregationTypeMax      // Maximum non-null value.
	AggregationTypeCount    // Number of non-null values.
	AggregationTypeLen      // Number of rows, including nulls.
	AggregationTypeQuantile // Quantile of non-null values with linear interpolation.
	AggregationTypeMedian   // Median of non-null values.
	AggregationTypeFirst    // First value of the group.
	AggregationTypeLast     // Last value of the group.
	AggregationTypeNUnique  // Number of distinct values; null counts as a value.
	AggregationTypeStd      // Sample standard deviation.
	AggregationTypeVar      // Sample variance.
)

var aggregationTypeStrings = map[AggregationType]string{
	AggregationTypeInvalid: "invalid",

	AggregationTypeSum:      "sum",
	AggregationTypeMean:     "mean",
	AggregationTypeMin:      "min",
	AggregationTypeMax:      "max",
	AggregationTypeCount:    "count",
	AggregationTypeLen:      "len",
	AggregationTypeQuantile: "quantile",
	AggregationTypeMedian:   "median",
	AggregationTypeFirst:    "first",
	AggregationTypeLast:     "last",
	AggregationTypeNUnique:  "n_unique",
	AggregationTypeStd:      "std",
	AggregationTypeVar:      "var",
}

func (t AggregationType) String() string {
	if s, ok := aggregationTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("AggregationType(%d)", t)
}

// ResultType returns the type produced by aggregating values of type in.
func (t AggregationType) ResultType(in DataType) (DataType, bool) {
	switch t {
	case AggregationTypeSum:
		switch {
		case in == Bool || in.IsInteger():
			return Int64, true
		case in == Float64 || in == Duration:
			return in, true
		case in == Null:
			return Int64, true
		}
	case AggregationTypeMean, AggregationTypeQuantile, AggregationTypeMedian, AggregationTypeStd, AggregationTypeVar:
		if in.IsNumeric() || in == Bool || in == Null {
			return Float64, true
		}
	case AggregationTypeMin, AggregationTypeMax:
		if in.IsOrdered() || in == Null {
			return in, true
		}
	case AggregationTypeFirst, AggregationTypeLast:
		return in, true
	case AggregationTypeCount, AggregationTypeLen, AggregationTypeNUnique:
		return Int64, true
	}
	return Invalid, false
}

// SumNullPolicy decides the result of summing a group without any non-null
// values.
type SumNullPolicy int

const (
	// SumNullAsZero returns 0 for empty and all-null groups.
	SumNullAsZero SumNullPolicy = iota
	// SumNullAsNull returns null for empty and all-null groups.
	SumNullAsNull
)

func (p SumNullPolicy) String() string {
	if p == SumNullAsNull {
		return "null"
	}
	return "zero"
}

// ParseSumNullPolicy parses the textual form of a SumNullPolicy.
func ParseSumNullPolicy(s string) (SumNullPolicy, error) {
	switch strings.ToLower(s) {
	case "zero", "":
		return SumNullAsZero, nil
	case "null":
		return SumNullAsNull, nil
	}
	return SumNullAsZero, fmt.Errorf("invalid sum null policy %q, must be one of zero, null", s)
}

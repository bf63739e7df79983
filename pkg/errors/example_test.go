// Package errors provides examples of structured error handling in tabflow.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/tabflow/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypePartition, "partition row counts do not add up").
		WithDetail("expected", 200000).
		WithDetail("actual", 199999)

	fmt.Println(err.Error())

	// Output:
	// partition_count_mismatch: partition row counts do not add up
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	cause := io.ErrUnexpectedEOF

	err := errors.Wrap(cause, errors.ErrorTypeProducer, "failed to produce OptU64").
		WithDetail("partition", 1).
		WithDetail("row", 42)

	if errors.IsType(err, errors.ErrorTypeProducer) {
		fmt.Println("This is a producer error")
	}
	fmt.Println(err.Unwrap() == io.ErrUnexpectedEOF)

	// Output:
	// This is a producer error
	// true
}

// ExampleAs shows how a typed error is found through a wrapping chain.
func ExampleAs() {
	inner := errors.New(errors.ErrorTypeTypeCheck, "data type check failed").
		WithDetail("expected", "U64").
		WithDetail("found", "OptU64")
	outer := errors.Wrap(inner, errors.ErrorTypeData, "dispatch failed")

	if e, ok := errors.As(outer, errors.ErrorTypeTypeCheck); ok {
		fmt.Println(e.Details["expected"], e.Details["found"])
	}

	// Output:
	// U64 OptU64
}

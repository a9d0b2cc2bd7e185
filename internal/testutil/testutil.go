// Package testutil provides shared test helpers for the conversion
// pipeline's packages.
package testutil

import (
	"testing"

	"gorgonia.org/tensor"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// TensorData returns the float32 backing slice of a dense tensor, failing
// the test if the tensor is nil or holds another element type.
func TensorData(t *testing.T, tn *tensor.Dense) []float32 {
	t.Helper()
	if tn == nil {
		t.Fatal("nil tensor")
	}
	data, ok := tn.Data().([]float32)
	if !ok {
		t.Fatalf("tensor backing is %T, want []float32", tn.Data())
	}
	return data
}

// AssertTensorShape fails the test unless the tensor has exactly the given
// dimensions.
func AssertTensorShape(t *testing.T, tn *tensor.Dense, dims ...int) {
	t.Helper()
	if tn == nil {
		t.Fatal("nil tensor")
	}
	if !tn.Shape().Eq(tensor.Shape(dims)) {
		t.Fatalf("tensor shape %v, want %v", tn.Shape(), dims)
	}
}

// CountNonZero returns how many elements of values are not zero.
func CountNonZero(values []float32) int {
	n := 0
	for _, v := range values {
		if v != 0 {
			n++
		}
	}
	return n
}

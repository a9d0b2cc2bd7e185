package testutil

import (
	"errors"
	"testing"

	"gorgonia.org/tensor"
)

func TestAssertNoError(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	if fakeT.Failed() {
		t.Error("expected no failure for nil error")
	}
}

func TestAssertError(t *testing.T) {
	fakeT := &testing.T{}
	AssertError(fakeT, errors.New("something wrong"))
	if fakeT.Failed() {
		t.Error("expected no failure when error is present")
	}
}

func TestTensorData(t *testing.T) {
	tn := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))
	data := TensorData(t, tn)
	if len(data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(data))
	}
	if data[4] != 5 {
		t.Errorf("expected element 4 to be 5, got %v", data[4])
	}
}

func TestAssertTensorShape(t *testing.T) {
	fakeT := &testing.T{}
	tn := tensor.New(tensor.WithShape(1, 128, 192), tensor.Of(tensor.Float32))
	AssertTensorShape(fakeT, tn, 1, 128, 192)
	if fakeT.Failed() {
		t.Error("expected no failure for matching shape")
	}
}

func TestCountNonZero(t *testing.T) {
	if got := CountNonZero([]float32{0, 1, 0, -2, 0.5, 0}); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := CountNonZero(nil); got != 0 {
		t.Errorf("expected 0 for nil slice, got %d", got)
	}
}

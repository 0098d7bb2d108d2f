// this code is grounded on the equivalent helper in https://github.com/brunocalza/go-bustub

package testingutils

import (
	"reflect"
	"testing"
)

// Ok fails the test if err is non-nil.
func Ok(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Nok fails the test if the condition is true where false was expected.
func Nok(t *testing.T, ok bool) {
	t.Helper()
	if ok {
		t.Fatalf("expected false, got true")
	}
}

// Assert fails the test with msg if condition is false.
func Assert(t *testing.T, condition bool, msg string, v ...interface{}) {
	t.Helper()
	if !condition {
		t.Fatalf(msg, v...)
	}
}

// Equals fails the test if expected and actual are not deeply equal.
func Equals(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected: %#v, got: %#v", expected, actual)
	}
}

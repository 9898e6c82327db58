package ir

import "testing"

func TestTranslationFailed(t *testing.T) {
	ok := Translation{Command: &Command{}}
	if ok.Failed() {
		t.Error("translation with a command must not be failed")
	}

	bad := Translation{ValidationFailures: []Failure{{Reason: "nope"}}}
	if !bad.Failed() {
		t.Error("translation with validation failures must be failed")
	}

	missing := Translation{MissingContextFailures: []Failure{{Reason: "need more"}}}
	if !missing.Failed() {
		t.Error("translation with missing context must be failed")
	}
}

func TestTranslationEqualIgnoresWhitespace(t *testing.T) {
	a := &Translation{Program: "aws iam list-users\n"}
	b := &Translation{Program: "  aws iam list-users  "}
	if !a.Equal(b) {
		t.Error("programs differing only in whitespace must compare equal")
	}

	c := &Translation{Program: "aws iam list-roles"}
	if a.Equal(c) {
		t.Error("different programs must not compare equal")
	}
	if a.Equal(nil) {
		t.Error("nil comparison must be false")
	}
}

func TestTranslationEqualComparesFailures(t *testing.T) {
	a := &Translation{ValidationFailures: []Failure{{Reason: "x"}}}
	b := &Translation{ValidationFailures: []Failure{{Reason: "x"}}}
	if !a.Equal(b) {
		t.Error("matching failure reasons must compare equal")
	}
	c := &Translation{ValidationFailures: []Failure{{Reason: "y"}}}
	if a.Equal(c) {
		t.Error("different failure reasons must not compare equal")
	}
}

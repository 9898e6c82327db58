package lexer

import (
	"errors"
	"testing"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

func TestSplit_Basic(t *testing.T) {
	tokens, err := Split("aws ec2 describe-instances")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"aws", "ec2", "describe-instances"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestSplit_Quoting(t *testing.T) {
	tokens, err := Split(`aws s3api put-object --bucket my-bucket --key "a file.txt"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[len(tokens)-1] != "a file.txt" {
		t.Fatalf("expected quoted token to be preserved, got %q", tokens[len(tokens)-1])
	}
}

func TestSplit_ProhibitedOperators(t *testing.T) {
	_, err := Split("aws ec2 describe-instances && aws s3 ls")
	var perr *ir.ProhibitedOperatorsError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProhibitedOperatorsError, got %v", err)
	}
	if len(perr.Operators) != 2 || perr.Operators[0] != "&&" {
		t.Fatalf("expected both && occurrences reported, got %v", perr.Operators)
	}
}

func TestSplit_AllOffendersReported(t *testing.T) {
	_, err := Split("aws ec2 describe-instances || x = y")
	var perr *ir.ProhibitedOperatorsError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProhibitedOperatorsError, got %v", err)
	}
	if len(perr.Operators) != 2 {
		t.Fatalf("expected 2 prohibited operators, got %v", perr.Operators)
	}
}

func TestSplit_Empty(t *testing.T) {
	_, err := Split("   ")
	var perr *ir.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError for empty command, got %v", err)
	}
}

func TestSplit_NotAWS(t *testing.T) {
	_, err := Split("gcloud compute instances list")
	if err == nil {
		t.Fatal("expected error for non-aws command")
	}
}

func TestSplit_UnbalancedQuote(t *testing.T) {
	_, err := Split(`aws s3 ls "oops`)
	var perr *ir.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError for unbalanced quote, got %v", err)
	}
}

package goq_test

import (
	"context"
	"testing"

	"github.com/kaspervalen/goq"
	"github.com/kaspervalen/goq/pkg/interp"
	"github.com/kaspervalen/goq/pkg/value"
)

func TestRunBasicQuery(t *testing.T) {
	out, err := goq.Run(".foo", `{"foo":42,"bar":43}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "42" {
		t.Fatalf("got %q, want %q", out, "42")
	}
}

func TestRunMultipleResultsOneLineEach(t *testing.T) {
	out, err := goq.Run(".[0,2]", `[1,2,3]`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "1\n3" {
		t.Fatalf("got %q, want %q", out, "1\n3")
	}
}

func TestRunInvalidJSONInput(t *testing.T) {
	if _, err := goq.Run(".", `{not json`); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestRunInvalidQuery(t *testing.T) {
	if _, err := goq.Run("..x..", `null`); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestCompileOnceEvalMany(t *testing.T) {
	expr, err := goq.Compile(".name")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ev := goq.New()

	for _, doc := range []string{`{"name":"ann"}`, `{"name":"bo"}`} {
		input, err := value.DecodeString(doc)
		if err != nil {
			t.Fatalf("DecodeString: %v", err)
		}
		s, err := ev.Eval(context.Background(), expr, input)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		vs, err := interp.Collect(context.Background(), s)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if len(vs) != 1 {
			t.Fatalf("got %v", vs)
		}
	}
}

func TestMustCompilePanicsOnBadQuery(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustCompile to panic on an invalid query")
		}
	}()
	goq.MustCompile("(")
}

func TestEvalAgainstDecodedValue(t *testing.T) {
	input, err := value.DecodeString(`{"name":"ann"}`)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	results, err := goq.Eval(".name", input)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(results) != 1 || results[0].(string) != "ann" {
		t.Fatalf("got %v", results)
	}
}

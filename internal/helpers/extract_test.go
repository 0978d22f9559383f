package helpers

import "testing"

func TestExtractJSONFencedEqualsBare(t *testing.T) {
	bare := `{"topic":"go","ids":[1,2,3]}`
	cases := []string{
		bare,
		"```json\n" + bare + "\n```",
		"```\n" + bare + "\n```",
		"~~~json\n" + bare + "\n~~~",
		"Here is the result:\n```json\n" + bare + "\n```\nDone.",
	}
	for i, in := range cases {
		out, err := ExtractJSON(in)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if out != bare {
			t.Fatalf("case %d: got %q, want %q", i, out, bare)
		}
	}
}

func TestExtractJSONArrays(t *testing.T) {
	in := "```json\n[{\"id\":\"a\"},{\"id\":\"b\"}]\n```"
	out, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `[{"id":"a"},{"id":"b"}]` {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	in := `prefix {"claim":"use {braces} and \"quotes\" freely","n":1} suffix`
	out, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"claim":"use {braces} and \"quotes\" freely","n":1}` {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONStripsBOM(t *testing.T) {
	out, err := ExtractJSON("\uFEFF{\"ok\":true}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONNoJSON(t *testing.T) {
	if _, err := ExtractJSON("the model replied in prose only"); err == nil {
		t.Fatal("expected an error for prose-only input")
	}
	if _, err := ExtractJSON(""); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestExtractJSONUnbalanced(t *testing.T) {
	if _, err := ExtractJSON(`{"truncated": [1, 2`); err == nil {
		t.Fatal("expected an error for unbalanced input")
	}
}

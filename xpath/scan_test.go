package xpath

import (
	"strings"
	"testing"
)

func TestScan(t *testing.T) {
	tests := []struct {
		Input string
		Want  []Token
	}{
		{
			Input: "/root/item[1]",
			Want: []Token{
				{Type: currLevel},
				{Type: Name, Literal: "root"},
				{Type: currLevel},
				{Type: Name, Literal: "item"},
				{Type: begPred},
				{Type: Digit, Literal: "1"},
				{Type: endPred},
			},
		},
		{
			Input: "child::ns:item",
			Want: []Token{
				{Type: Name, Literal: "child"},
				{Type: opAxis},
				{Type: Name, Literal: "ns"},
				{Type: Namespace},
				{Type: Name, Literal: "item"},
			},
		},
		{
			Input: "../@id != 'a' or $var",
			Want: []Token{
				{Type: parentNode},
				{Type: currLevel},
				{Type: attrNode},
				{Type: Name, Literal: "id"},
				{Type: opNe},
				{Type: Literal, Literal: "a"},
				{Type: opOr},
				{Type: variable, Literal: "var"},
			},
		},
		{
			Input: `1.5 div 2 mod -3 * "x"`,
			Want: []Token{
				{Type: Digit, Literal: "1.5"},
				{Type: opDiv},
				{Type: Digit, Literal: "2"},
				{Type: opMod},
				{Type: opSub},
				{Type: Digit, Literal: "3"},
				{Type: opMul},
				{Type: Literal, Literal: "x"},
			},
		},
		{
			Input: "//a >= 1 and .<= 2 | b-c",
			Want: []Token{
				{Type: anyLevel},
				{Type: Name, Literal: "a"},
				{Type: opGe},
				{Type: Digit, Literal: "1"},
				{Type: opAnd},
				{Type: currNode},
				{Type: opLe},
				{Type: Digit, Literal: "2"},
				{Type: opUnion},
				{Type: Name, Literal: "b-c"},
			},
		},
		{
			Input: "count(a, b) = 2 > 1 < 3 + 4",
			Want: []Token{
				{Type: Name, Literal: "count"},
				{Type: begGrp},
				{Type: Name, Literal: "a"},
				{Type: opSeq},
				{Type: Name, Literal: "b"},
				{Type: endGrp},
				{Type: opEq},
				{Type: Digit, Literal: "2"},
				{Type: opGt},
				{Type: Digit, Literal: "1"},
				{Type: opLt},
				{Type: Digit, Literal: "3"},
				{Type: opAdd},
				{Type: Digit, Literal: "4"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Input, func(t *testing.T) {
			scan := Scan(strings.NewReader(tt.Input))
			for i, want := range tt.Want {
				got := scan.Scan()
				if got.Type != want.Type || got.Literal != want.Literal {
					t.Fatalf("token %d: want %s, got %s", i, want, got)
				}
			}
			if got := scan.Scan(); got.Type != EOF {
				t.Errorf("expected end of input, got %s", got)
			}
		})
	}
}

func TestScanInvalid(t *testing.T) {
	tests := []string{
		"'unterminated",
		"$",
		"!",
		"#",
	}
	for _, str := range tests {
		tok := Scan(strings.NewReader(str)).Scan()
		if tok.Type != Invalid {
			t.Errorf("%s: expected invalid token, got %s", str, tok)
		}
	}
}

func TestScanPosition(t *testing.T) {
	scan := Scan(strings.NewReader("a\n  b"))
	if tok := scan.Scan(); tok.Position != (Position{Line: 1, Column: 1}) {
		t.Errorf("first token: unexpected position %s", tok.Position)
	}
	if tok := scan.Scan(); tok.Position != (Position{Line: 2, Column: 3}) {
		t.Errorf("second token: unexpected position %s", tok.Position)
	}
}

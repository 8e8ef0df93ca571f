package normalize

import "testing"

func TestFirstMatchWins(t *testing.T) {
	// Rule A's trigger is a substring of rule B's; listed first, it must win
	// for inputs matching both.
	n := New([]Rule{
		MustRule(`cannot find symbol.*variable`, "symbol-variable"),
		MustRule(`cannot find symbol`, "symbol"),
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"specific rule wins", "error: cannot find symbol x variable foo", "symbol-variable"},
		{"general rule as fallback", "error: cannot find symbol", "symbol"},
		{"case insensitive", "ERROR: CANNOT FIND SYMBOL", "symbol"},
		{"whitespace trimmed", "   cannot find symbol\t", "symbol"},
		{"no match", "something else entirely", CategoryOther},
		{"blank", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmptyTableAlwaysOther(t *testing.T) {
	n := New(nil)
	if got := n.Normalize("anything at all"); got != CategoryOther {
		t.Errorf("Normalize with empty table = %q, want %q", got, CategoryOther)
	}
}

func TestExceptionName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"java.lang.NullPointerException", "NullPointerException"},
		{"java.lang.ArrayIndexOutOfBoundsException", "ArrayIndexOutOfBoundsException"},
		{"CustomError", "CustomError"},
		{"a.b.c.DeepException", "DeepException"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExceptionName(tt.input); got != tt.want {
			t.Errorf("ExceptionName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

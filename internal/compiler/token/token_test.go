package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		// Keywords
		{"fn", FN},
		{"let", LET},
		{"const", CONST},
		{"mut", MUT},
		{"if", IF},
		{"else", ELSE},
		{"for", FOR},
		{"in", IN},
		{"of", OF},
		{"while", WHILE},
		{"match", MATCH},
		{"ret", RET},
		{"yield", YIELD},
		{"await", AWAIT},
		{"async", ASYNC},
		{"import", IMPORT},
		{"export", EXPORT},
		{"from", FROM},
		{"as", AS},
		{"type", TYPE},
		{"struct", STRUCT},
		{"enum", ENUM},
		{"impl", IMPL},
		{"pub", PUB},
		{"self", SELF},
		{"true", TRUE},
		{"false", FALSE},
		{"nil", NIL},
		{"use", USE},
		{"with", WITH},
		{"on", ON},
		{"try", TRY},
		{"catch", CATCH},
		{"extern", EXTERN},
		// Non-keywords
		{"variable", IDENT},
		{"Task", IDENT},
		{"userId", IDENT},
		{"foo_bar", IDENT},
		{"", IDENT},
		{"unknown", IDENT},
	}

	for _, tt := range tests {
		result := LookupIdent(tt.input)
		if result != tt.expected {
			t.Errorf("LookupIdent(%q) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}

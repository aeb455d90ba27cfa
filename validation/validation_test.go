package validation

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"AAPL", "AAPL", false},
		{"aapl", "AAPL", false},
		{"  msft ", "MSFT", false},
		{"^GSPC", "^GSPC", false},
		{"BRK.B", "BRK.B", false},
		{"BF-B", "BF-B", false},
		{"", "", true},
		{"   ", "", true},
		{"AAPL;DROP TABLE stocks", "", true},
		{"TOOLONGSYMBOLNAMEXXXXX", "", true},
		{"1AAPL", "", true},
	}

	for _, c := range cases {
		got, err := NormalizeSymbol(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeSymbol(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSymbol(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSymbolIdempotent(t *testing.T) {
	first, err := NormalizeSymbol(" aapl ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NormalizeSymbol(first)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if second != first {
		t.Errorf("normalization not idempotent: %q then %q", first, second)
	}
}

func TestNormalizeSymbolsDedup(t *testing.T) {
	got, err := NormalizeSymbols([]string{"aapl", "MSFT", "AAPL", " msft "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("expected [AAPL MSFT], got %v", got)
	}
}

func TestNormalizeSymbolsRejectsInvalidEntry(t *testing.T) {
	if _, err := NormalizeSymbols([]string{"AAPL", "bad symbol"}); err == nil {
		t.Error("expected error for invalid entry in list")
	}
}

func TestNormalizeSymbolsRequiresOne(t *testing.T) {
	if _, err := NormalizeSymbols(nil); err == nil {
		t.Error("expected error for empty list")
	}
}

func TestParseSymbolsCSV(t *testing.T) {
	got, err := ParseSymbolsCSV("aapl, ,MSFT,,aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("expected [AAPL MSFT], got %v", got)
	}

	if _, err := ParseSymbolsCSV(""); err == nil {
		t.Error("expected error for empty CSV")
	}
	if _, err := ParseSymbolsCSV(",,,"); err == nil {
		t.Error("expected error for CSV of empty entries")
	}
}

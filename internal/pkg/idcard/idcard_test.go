package idcard

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"known good with X", "11010519491231002X", true},
		{"known good lowercase x", "11010519491231002x", true},
		{"mutated check code", "110105194912310021", false},
		{"mutated body digit", "11010519491231003X", false},
		{"valid digit check code", "440308199901010012", true},
		{"too short", "11010519491231002", false},
		{"too long", "11010519491231002X1", false},
		{"letter in body", "1101051949123100AX", false},
		{"bad trailing char", "11010519491231002Y", false},
		{"empty", "", false},
		{"full-width digits", "１１０１０５１９４９１２３１００２X", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateAgreesWithCheckCode(t *testing.T) {
	body := "11010519491231002"
	code, ok := CheckCode(body)
	if !ok {
		t.Fatalf("CheckCode(%q) not ok", body)
	}
	for _, c := range "0123456789X" {
		s := body + string(c)
		want := byte(c) == code
		if got := Validate(s); got != want {
			t.Errorf("Validate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(" 11010519491231002x "); got != "11010519491231002X" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestLastFour(t *testing.T) {
	if got := LastFour("11010519491231002X"); got != "002X" {
		t.Errorf("LastFour = %q", got)
	}
	if got := LastFour("12"); got != "12" {
		t.Errorf("LastFour short = %q", got)
	}
}

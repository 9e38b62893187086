package classify

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Moderator", "moderator"},
		{"confusable owner", "Ꮪєяνєя Øωηєr", "server owner"},
		{"fullwidth", "Ａｄｍｉｎ", "admin"},
		{"accents", "Modérateur", "moderateur"},
		{"box drawing", "━━━ Staff ━━━", "staff"},
		{"brackets", "[VIP]Member", "vip member"},
		{"zero width", "Ad​min", "admin"},
		{"age range preserved", "18+", "18+"},
		{"emoji only", "🎀🌸🎀", ""},
		{"mathematical bold", "𝐀𝐝𝐦𝐢𝐧", "admin"},
		{"cyrillic admin", "Аdмin", "admin"},
		{"whitespace collapse", "  lead   mod  ", "lead mod"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Ꮪєяνєя Øωηєr", "━ Admin ━", "Moderator", "18-25"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

package encoding

import "testing"

func TestEUCKRRoundTrip(t *testing.T) {
	names := []string{"prontera.gat", "데이터/지도.gat", ""}
	for _, name := range names {
		encoded := UTF8ToEUCKR(name)
		if got := EUCKRToUTF8(encoded); got != name {
			t.Errorf("round trip of %q = %q", name, got)
		}
	}

	// Hangul must not survive as raw UTF-8 bytes.
	if encoded := UTF8ToEUCKR("지"); len(encoded) != 2 {
		t.Errorf("expected a two-byte EUC-KR code, got % x", encoded)
	}
}

func TestNormalizeGRFPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`data\Prontera.GAT`, "data/prontera.gat"},
		{"data/prontera.gat", "data/prontera.gat"},
		{`DATA\sub\Dir\x.gat`, "data/sub/dir/x.gat"},
	}
	for _, tt := range tests {
		if got := NormalizeGRFPath(tt.in); got != tt.want {
			t.Errorf("NormalizeGRFPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

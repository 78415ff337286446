package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "claim1.json", want: "claim1.json"},
		{name: "simple prefix", prefix: "artifacts", key: "claim1.json", want: "artifacts/claim1.json"},
		{name: "prefix trailing slash", prefix: "artifacts/", key: "claim1.json", want: "artifacts/claim1.json"},
		{name: "prefix and key slashes", prefix: "/artifacts/", key: "/claim1.json", want: "artifacts/claim1.json"},
		{name: "nested prefix", prefix: "coi/artifacts", key: "claim1.json", want: "coi/artifacts/claim1.json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	if got := normalizePrefix("  /coi/artifacts/ "); got != "coi/artifacts" {
		t.Fatalf("unexpected prefix %q", got)
	}
}

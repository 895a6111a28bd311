package scene

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestIdentifier_Generate(t *testing.T) {
	id := NewIdentifier(DefaultTTL)

	seen := make(map[string]bool)
	for range 100 {
		s := id.Generate()
		if seen[s] {
			t.Fatalf("Generate() produced duplicate scene ID %q", s)
		}
		seen[s] = true

		head, tail, ok := strings.Cut(s, "-")
		if !ok {
			t.Fatalf("Generate() = %q, want \"{msEpoch}-{randomBase36}\"", s)
		}
		if len(head) != 13 {
			t.Errorf("Generate() timestamp segment %q, want 13-digit ms epoch", head)
		}
		if tail == "" {
			t.Errorf("Generate() = %q, random segment is empty", s)
		}
	}
}

func TestIdentifier_Validate(t *testing.T) {
	id := NewIdentifier(DefaultTTL)
	base := time.Now()
	id.now = func() time.Time { return base }

	fresh := id.Generate()

	tests := []struct {
		name    string
		sceneID string
		elapsed time.Duration
		want    bool
	}{
		{"fresh ID", fresh, 0, true},
		{"just under TTL", fresh, 29 * time.Minute, true},
		{"past TTL", fresh, 31 * time.Minute, false},
		{"exactly TTL", fresh, 30 * time.Minute, false},
		{"empty", "", 0, false},
		{"no separator", "1700000000000", 0, false},
		{"non-numeric timestamp", "abc-def", 0, false},
		{"negative timestamp", "-123-abc", 0, false},
		{"missing timestamp", "-abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id.now = func() time.Time { return base.Add(tt.elapsed) }
			if got := id.Validate(tt.sceneID); got != tt.want {
				t.Errorf("Validate(%q) after %v = %v, want %v", tt.sceneID, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestIdentifier_ValidateNeverFlapsBack(t *testing.T) {
	id := NewIdentifier(DefaultTTL)
	base := time.Now()

	sceneID := fmt.Sprintf("%d-abc123", base.UnixMilli())

	wasValid := true
	for elapsed := time.Duration(0); elapsed <= 40*time.Minute; elapsed += time.Minute {
		id.now = func() time.Time { return base.Add(elapsed) }
		valid := id.Validate(sceneID)
		if valid && !wasValid {
			t.Fatalf("Validate() flapped back to valid at %v", elapsed)
		}
		wasValid = valid
	}
	if wasValid {
		t.Errorf("Validate() still true after 40 minutes")
	}
}

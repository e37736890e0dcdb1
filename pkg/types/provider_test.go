package types

import "testing"

func TestProviderKindRoundtrip(t *testing.T) {
	kinds := []ProviderKind{
		Interactive(InteractiveCLI),
		Interactive(InteractiveGUI),
		Interactive(InteractiveNetwork),
		Interactive(InteractiveReplay),
		AI(AIWait),
		AI(AIUtility),
		Custom(0),
		Custom(7),
		Custom(4294967295),
	}
	for _, kind := range kinds {
		text, err := kind.MarshalText()
		if err != nil {
			t.Fatalf("%s: marshal: %v", kind, err)
		}
		var back ProviderKind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("%s: unmarshal %q: %v", kind, text, err)
		}
		if back != kind {
			t.Fatalf("roundtrip %q: got %s, want %s", text, back, kind)
		}
	}
}

func TestProviderKindZero(t *testing.T) {
	var zero ProviderKind
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if _, err := zero.MarshalText(); err == nil {
		t.Fatal("marshal of unset kind should fail")
	}
	if zero.IsInteractive() || zero.IsAI() || zero.IsCustom() {
		t.Fatal("zero value should belong to no class")
	}
}

func TestProviderKindClasses(t *testing.T) {
	k := Interactive(InteractiveNetwork)
	if !k.IsInteractive() || k.IsAI() || k.IsCustom() {
		t.Fatalf("wrong class for %s", k)
	}
	if got, ok := k.InteractiveKind(); !ok || got != InteractiveNetwork {
		t.Fatalf("InteractiveKind()=%v,%v", got, ok)
	}
	if _, ok := k.AIKind(); ok {
		t.Fatal("AIKind should not be set on interactive kind")
	}

	a := AI(AIUtility)
	if got, ok := a.AIKind(); !ok || got != AIUtility {
		t.Fatalf("AIKind()=%v,%v", got, ok)
	}

	c := Custom(12)
	if got, ok := c.CustomID(); !ok || got != 12 {
		t.Fatalf("CustomID()=%v,%v", got, ok)
	}
}

func TestProviderKindStrings(t *testing.T) {
	cases := map[string]ProviderKind{
		"interactive/cli":     Interactive(InteractiveCLI),
		"interactive/network": Interactive(InteractiveNetwork),
		"ai/wait":             AI(AIWait),
		"ai/utility":          AI(AIUtility),
		"custom/3":            Custom(3),
	}
	for want, kind := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("String()=%q, want %q", got, want)
		}
	}
}

func TestProviderKindUnmarshalUnknown(t *testing.T) {
	var k ProviderKind
	for _, bad := range []string{"", "interactive/telepathy", "ai/", "custom/x", "unset"} {
		if err := k.UnmarshalText([]byte(bad)); err == nil {
			t.Fatalf("unmarshal %q should fail", bad)
		}
	}
}

func TestProviderKindComparable(t *testing.T) {
	// Kinds are map keys in the registry; equal constructions must collide.
	m := map[ProviderKind]int{
		AI(AIWait):     1,
		Custom(9):      2,
		Interactive(0): 3,
	}
	if m[AI(AIWait)] != 1 || m[Custom(9)] != 2 || m[Interactive(InteractiveCLI)] != 3 {
		t.Fatal("equal kinds should index the same map slot")
	}
}

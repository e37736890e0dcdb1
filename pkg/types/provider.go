package types

import "fmt"

// InteractiveKind enumerates input sources fed by data arriving from outside
// the deterministic core (human players, remote peers, recorded logs).
type InteractiveKind uint8

const (
	InteractiveCLI InteractiveKind = iota
	InteractiveGUI
	InteractiveNetwork
	InteractiveReplay
)

func (k InteractiveKind) String() string {
	switch k {
	case InteractiveCLI:
		return "cli"
	case InteractiveGUI:
		return "gui"
	case InteractiveNetwork:
		return "network"
	case InteractiveReplay:
		return "replay"
	default:
		return fmt.Sprintf("interactive(%d)", uint8(k))
	}
}

// AIKind enumerates automated decision makers. AI providers must be pure
// functions of the state snapshot; that purity is what makes a recorded turn
// re-executable during challenge verification.
type AIKind uint8

const (
	AIWait AIKind = iota
	AIUtility
)

func (k AIKind) String() string {
	switch k {
	case AIWait:
		return "wait"
	case AIUtility:
		return "utility"
	default:
		return fmt.Sprintf("ai(%d)", uint8(k))
	}
}

type providerClass uint8

const (
	classInteractive providerClass = iota + 1
	classAI
	classCustom
)

// ProviderKind identifies which type of decision source generates actions for
// an actor. The kind travels with the actor inside canonical state (it is
// serialized into every snapshot), while the live callable behind it is
// process-local and installed through the provider registry.
//
// The set of built-in kinds is closed: values can only be produced by the
// Interactive/AI/Custom constructors, so a snapshot can never carry a kind
// the protocol does not know how to re-execute.
type ProviderKind struct {
	class       providerClass
	interactive InteractiveKind
	ai          AIKind
	custom      uint32
}

// Interactive returns the provider kind for an external input source.
func Interactive(k InteractiveKind) ProviderKind {
	return ProviderKind{class: classInteractive, interactive: k}
}

// AI returns the provider kind for an automated decision maker.
func AI(k AIKind) ProviderKind {
	return ProviderKind{class: classAI, ai: k}
}

// Custom returns an extensibility-slot provider kind with an opaque
// discriminant. Custom kinds participate in the same registry and replay
// contracts as built-in ones.
func Custom(id uint32) ProviderKind {
	return ProviderKind{class: classCustom, custom: id}
}

// IsZero reports whether the kind is the unset zero value. A zero kind is
// never a valid binding.
func (p ProviderKind) IsZero() bool { return p.class == 0 }

// IsInteractive reports whether actions for this kind arrive from outside
// the deterministic core.
func (p ProviderKind) IsInteractive() bool { return p.class == classInteractive }

// IsAI reports whether this kind computes actions purely from state.
func (p ProviderKind) IsAI() bool { return p.class == classAI }

// IsCustom reports whether this is an extensibility-slot kind.
func (p ProviderKind) IsCustom() bool { return p.class == classCustom }

// InteractiveKind returns the interactive discriminant; ok is false when the
// kind is not interactive.
func (p ProviderKind) InteractiveKind() (InteractiveKind, bool) {
	return p.interactive, p.class == classInteractive
}

// AIKind returns the AI discriminant; ok is false when the kind is not AI.
func (p ProviderKind) AIKind() (AIKind, bool) {
	return p.ai, p.class == classAI
}

// CustomID returns the custom discriminant; ok is false when the kind is not
// custom.
func (p ProviderKind) CustomID() (uint32, bool) {
	return p.custom, p.class == classCustom
}

func (p ProviderKind) String() string {
	switch p.class {
	case classInteractive:
		return "interactive/" + p.interactive.String()
	case classAI:
		return "ai/" + p.ai.String()
	case classCustom:
		return fmt.Sprintf("custom/%d", p.custom)
	default:
		return "unset"
	}
}

// MarshalText serializes the kind in its display form (e.g. "ai/wait").
// Snapshots are hashed and archived, so the encoding must stay stable.
func (p ProviderKind) MarshalText() ([]byte, error) {
	if p.class == 0 {
		return nil, fmt.Errorf("provider kind: marshal of unset kind")
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses the display form produced by MarshalText.
func (p *ProviderKind) UnmarshalText(b []byte) error {
	s := string(b)
	switch s {
	case "interactive/cli":
		*p = Interactive(InteractiveCLI)
	case "interactive/gui":
		*p = Interactive(InteractiveGUI)
	case "interactive/network":
		*p = Interactive(InteractiveNetwork)
	case "interactive/replay":
		*p = Interactive(InteractiveReplay)
	case "ai/wait":
		*p = AI(AIWait)
	case "ai/utility":
		*p = AI(AIUtility)
	default:
		var id uint32
		if _, err := fmt.Sscanf(s, "custom/%d", &id); err == nil {
			*p = Custom(id)
			return nil
		}
		return fmt.Errorf("provider kind: unknown value %q", s)
	}
	return nil
}

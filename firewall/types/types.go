package types

import "fmt"

// PortSpace is the number of distinct transport ports.
const PortSpace = 1 << 16

// EngineType are the supported rule engine implementations.
type EngineType string

// All supported rule engine implementations.
const (
	EngineBucketed EngineType = "bucketed"
	EngineNaive    EngineType = "naive"
)

// EngineTypeFromString returns a valid EngineType for the given string, or
// an error if the value is invalid.
func EngineTypeFromString(val string) (EngineType, error) {
	switch EngineType(val) {
	case EngineBucketed:
		return EngineBucketed, nil
	case EngineNaive:
		return EngineNaive, nil
	}
	return "", fmt.Errorf("unsupported engine type '%s'", val)
}

// Engine stores firewall rules and decides whether packets are permitted.
type Engine interface {
	// Insert stores the rule. Inserting a rule equal to one already stored
	// is a no-op.
	Insert(rule Rule) error

	// Classify returns true if any stored rule matches the packet. Packets
	// that match no rule are denied.
	Classify(pkt Packet) bool

	// Len returns the number of distinct rules stored.
	Len() int
}

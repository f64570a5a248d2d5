package types

import (
	"fmt"
	"strconv"
	"strings"

	"go4.org/netipx"
)

// Direction is the flow of a packet relative to the protected boundary.
type Direction string

// All supported directions.
const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// DirectionFromString returns a valid Direction for the given string, or an
// error if the value is invalid.
func DirectionFromString(val string) (Direction, error) {
	switch Direction(val) {
	case Inbound:
		return Inbound, nil
	case Outbound:
		return Outbound, nil
	}
	return "", fmt.Errorf("%w '%s': must be one of %s, %s", ErrInvalidDirection, val, Inbound, Outbound)
}

// Index returns the position of the direction in a two-element table.
func (d Direction) Index() int {
	if d == Outbound {
		return 1
	}
	return 0
}

// Protocol is the transport protocol of a packet.
type Protocol string

// All supported protocols.
const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// ProtocolFromString returns a valid Protocol for the given string, or an
// error if the value is invalid.
func ProtocolFromString(val string) (Protocol, error) {
	switch Protocol(val) {
	case TCP:
		return TCP, nil
	case UDP:
		return UDP, nil
	}
	return "", fmt.Errorf("%w '%s': must be one of %s, %s", ErrInvalidProtocol, val, TCP, UDP)
}

// Index returns the position of the protocol in a two-element table.
func (p Protocol) Index() int {
	if p == UDP {
		return 1
	}
	return 0
}

// Packet describes a packet to be classified.
type Packet struct {
	Direction Direction
	Protocol  Protocol
	Port      uint16
	IP        Address
}

// ParsePacket creates a Packet from its raw text fields.
func ParsePacket(direction, protocol, port, ip string) (Packet, error) {
	var (
		pkt Packet
		err error
	)
	if pkt.Direction, err = DirectionFromString(direction); err != nil {
		return Packet{}, err
	}
	if pkt.Protocol, err = ProtocolFromString(protocol); err != nil {
		return Packet{}, err
	}
	if pkt.Port, err = parsePort(port); err != nil {
		return Packet{}, err
	}
	if pkt.IP, err = ParseAddress(ip); err != nil {
		return Packet{}, err
	}

	return pkt, nil
}

// Rule permits packets of a specific direction and protocol, whose port and
// address fall within closed intervals. Rules are immutable, and two rules are
// equal if all their fields are equal, so they can be used as map keys.
type Rule struct {
	direction Direction
	protocol  Protocol
	minPort   uint16
	maxPort   uint16
	minIP     Address
	maxIP     Address
}

// NewRule creates a Rule from its raw text fields. portSpec is either a single
// port ("80") or an inclusive range ("80-90"), and ipSpec is either a single
// address ("10.0.0.1") or an inclusive range ("10.0.0.1-10.0.0.9").
func NewRule(direction, protocol, portSpec, ipSpec string) (Rule, error) {
	dir, err := DirectionFromString(direction)
	if err != nil {
		return Rule{}, err
	}
	proto, err := ProtocolFromString(protocol)
	if err != nil {
		return Rule{}, err
	}

	minPortStr, maxPortStr, isRange := strings.Cut(portSpec, "-")
	if !isRange {
		maxPortStr = minPortStr
	}
	minPort, err := parsePort(minPortStr)
	if err != nil {
		return Rule{}, err
	}
	maxPort, err := parsePort(maxPortStr)
	if err != nil {
		return Rule{}, err
	}

	minIPStr, maxIPStr, isRange := strings.Cut(ipSpec, "-")
	if !isRange {
		maxIPStr = minIPStr
	}
	minIP, err := ParseAddress(minIPStr)
	if err != nil {
		return Rule{}, err
	}
	maxIP, err := ParseAddress(maxIPStr)
	if err != nil {
		return Rule{}, err
	}

	return NewRuleFromRanges(dir, proto, minPort, maxPort, minIP, maxIP)
}

// NewRuleFromRanges creates a Rule from already parsed values.
func NewRuleFromRanges(
	dir Direction, proto Protocol, minPort, maxPort uint16, minIP, maxIP Address,
) (Rule, error) {
	if _, err := DirectionFromString(string(dir)); err != nil {
		return Rule{}, err
	}
	if _, err := ProtocolFromString(string(proto)); err != nil {
		return Rule{}, err
	}
	if minPort > maxPort {
		return Rule{}, fmt.Errorf("%w '%d-%d': lower bound is greater than upper bound",
			ErrInvalidPortRange, minPort, maxPort)
	}
	if minIP.Compare(maxIP) > 0 {
		return Rule{}, fmt.Errorf("%w '%s-%s': lower bound is greater than upper bound",
			ErrInvalidAddressRange, minIP, maxIP)
	}

	return Rule{
		direction: dir,
		protocol:  proto,
		minPort:   minPort,
		maxPort:   maxPort,
		minIP:     minIP,
		maxIP:     maxIP,
	}, nil
}

// MustNewRule is like NewRule, but panics on error.
func MustNewRule(direction, protocol, portSpec, ipSpec string) Rule {
	r, err := NewRule(direction, protocol, portSpec, ipSpec)
	if err != nil {
		panic(err)
	}
	return r
}

// Direction returns the packet direction the rule applies to.
func (r Rule) Direction() Direction { return r.direction }

// Protocol returns the protocol the rule applies to.
func (r Rule) Protocol() Protocol { return r.protocol }

// MinPort returns the lower bound of the port interval.
func (r Rule) MinPort() uint16 { return r.minPort }

// MaxPort returns the upper bound of the port interval.
func (r Rule) MaxPort() uint16 { return r.maxPort }

// MinIP returns the lower bound of the address interval.
func (r Rule) MinIP() Address { return r.minIP }

// MaxIP returns the upper bound of the address interval.
func (r Rule) MaxIP() Address { return r.maxIP }

// Matches returns true if the packet has the same direction and protocol as
// the rule, and its port and address fall within the rule's intervals.
func (r Rule) Matches(pkt Packet) bool {
	if r.direction != pkt.Direction || r.protocol != pkt.Protocol {
		return false
	}
	if pkt.Port < r.minPort || pkt.Port > r.maxPort {
		return false
	}
	if pkt.IP.Compare(r.minIP) < 0 || pkt.IP.Compare(r.maxIP) > 0 {
		return false
	}
	return true
}

// PortSpec returns the port interval in the notation accepted by NewRule.
func (r Rule) PortSpec() string {
	if r.minPort == r.maxPort {
		return strconv.Itoa(int(r.minPort))
	}
	return fmt.Sprintf("%d-%d", r.minPort, r.maxPort)
}

// IPSpec returns the address interval in the notation accepted by NewRule.
func (r Rule) IPSpec() string {
	if r.minIP == r.maxIP {
		return r.minIP.String()
	}
	return fmt.Sprintf("%s-%s", r.minIP, r.maxIP)
}

// IPRange returns the address interval as a netipx.IPRange.
func (r Rule) IPRange() netipx.IPRange {
	return netipx.IPRangeFrom(r.minIP.NetIP(), r.maxIP.NetIP())
}

// String returns the rule in its comma-separated tuple form.
func (r Rule) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", r.direction, r.protocol, r.PortSpec(), r.IPSpec())
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: port '%s' is not a number between 0 and 65535",
			ErrInvalidPortRange, s)
	}
	return uint16(n), nil
}

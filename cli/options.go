package cli

import (
	"fmt"
	"reflect"

	"github.com/alecthomas/kong"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// EngineMapper parses the rule engine type.
type EngineMapper struct{}

var _ kong.Mapper = (*EngineMapper)(nil)

// Decode implements the kong.Mapper interface.
func (EngineMapper) Decode(kctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	err := kctx.Scan.PopValueInto("engine", &value)
	if err != nil {
		return err
	}

	et, err := ftypes.EngineTypeFromString(value)
	if err != nil {
		return err
	}

	target.Set(reflect.ValueOf(et))

	return nil
}

type bucketsField int

func (b bucketsField) Validate() error {
	if b < 0 || (b > 0 && ftypes.PortSpace%int(b) != 0) {
		return fmt.Errorf("must evenly divide %d", ftypes.PortSpace)
	}
	return nil
}

type directionField string

func (d directionField) Validate() error {
	_, err := ftypes.DirectionFromString(string(d))
	return err
}

type protocolField string

func (p protocolField) Validate() error {
	_, err := ftypes.ProtocolFromString(string(p))
	return err
}

package cli

import (
	"fmt"

	actx "go.hackfix.me/portcullis/app/context"
	aerrors "go.hackfix.me/portcullis/app/errors"
	"go.hackfix.me/portcullis/db/models"
	"go.hackfix.me/portcullis/firewall"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Check loads the firewall rules into a rule engine, and decides whether a
// single packet is accepted. Rules are read from the database, if
// portcullis is initialized, and from the optional rules file.
type Check struct {
	Direction directionField `arg:"" help:"Packet direction: inbound or outbound."`
	Protocol  protocolField  `arg:"" help:"Transport protocol: tcp or udp."`
	Port      string         `arg:"" help:"Packet port."`
	IP        string         `arg:"" help:"Packet IPv4 address."`

	Engine    ftypes.EngineType `type:"engine" help:"Rule engine implementation: bucketed or naive."`
	Buckets   bucketsField      `help:"Number of port buckets used by the bucketed engine."`
	RulesFile string            `help:"Path to a CSV file with additional rules."`
}

// Run the check command.
func (c *Check) Run(appCtx *actx.Context) error {
	pkt, err := ftypes.ParsePacket(string(c.Direction), string(c.Protocol), c.Port, c.IP)
	if err != nil {
		return fmt.Errorf("invalid packet: %w", err)
	}

	var rules []ftypes.Rule
	if appCtx.VersionInit != "" {
		stored, err := models.Rules(appCtx.DB.NewContext(), appCtx.DB, nil)
		if err != nil {
			return aerrors.NewWithCause("failed loading stored rules", err)
		}
		for _, r := range stored {
			rules = append(rules, r.Rule)
		}
	} else if c.RulesFile == "" {
		return checkInit(appCtx)
	}

	if c.RulesFile != "" {
		fileRules, err := readRulesFile(appCtx.FS, c.RulesFile)
		if err != nil {
			return err
		}
		rules = append(rules, fileRules...)
	}

	_, mgr, err := firewall.Setup(c.Engine, int(c.Buckets), appCtx.Logger,
		firewall.WithRules(rules...))
	if err != nil {
		return aerrors.NewWithCause("failed setting up rule engine", err,
			"engine", string(c.Engine))
	}

	decision := "deny"
	if mgr.Accept(pkt) {
		decision = "accept"
	}
	fmt.Fprintln(appCtx.Stdout, decision)

	return nil
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/portcullis/app/context"
	aerrors "go.hackfix.me/portcullis/app/errors"
	"go.hackfix.me/portcullis/db"
	"go.hackfix.me/portcullis/db/models"
	dbtypes "go.hackfix.me/portcullis/db/types"
	"go.hackfix.me/portcullis/firewall"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Rule manages the stored firewall rules.
type Rule struct {
	Add      RuleAdd      `kong:"cmd,help='Add a firewall rule.'"`
	Import   RuleImport   `kong:"cmd,help='Add firewall rules from a CSV file.'"`
	List     RuleList     `kong:"cmd,help='List stored firewall rules.',aliases='ls'"`
	Coverage RuleCoverage `kong:"cmd,help='Show the addresses covered by stored rules.'"`
}

// RuleAdd stores a single firewall rule.
type RuleAdd struct {
	Direction directionField `arg:"" help:"Packet direction: inbound or outbound."`
	Protocol  protocolField  `arg:"" help:"Transport protocol: tcp or udp."`
	//nolint:lll // Long struct tags are unavoidable.
	Port string `arg:"" help:"A single port or an inclusive range. \n Examples: 80, 1000-2000"`
	//nolint:lll // Long struct tags are unavoidable.
	IP string `arg:"" help:"A single IPv4 address or an inclusive range. \n Examples: 10.0.0.10, 192.168.1.2-192.168.2.1"`
}

// Run the rule add command.
func (c *RuleAdd) Run(appCtx *actx.Context) error {
	if err := checkInit(appCtx); err != nil {
		return err
	}

	rule, err := ftypes.NewRule(string(c.Direction), string(c.Protocol), c.Port, c.IP)
	if err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	added, err := saveRule(appCtx.DB, rule)
	if err != nil {
		return err
	}

	if added {
		appCtx.Logger.Info("added rule", "rule", rule.String())
	} else {
		appCtx.Logger.Info("rule already exists; skipping", "rule", rule.String())
	}

	return nil
}

// RuleImport stores firewall rules read from a CSV file.
type RuleImport struct {
	File string `arg:"" help:"Path to a CSV file with direction,protocol,port,ip_address records."`
}

// Run the rule import command.
func (c *RuleImport) Run(appCtx *actx.Context) error {
	if err := checkInit(appCtx); err != nil {
		return err
	}

	rules, err := readRulesFile(appCtx.FS, c.File)
	if err != nil {
		return err
	}

	// Either all rules in the file are stored, or none are.
	var added, duplicates int
	err = appCtx.DB.Update(func(tx *db.Tx) error {
		for _, rule := range rules {
			ok, err := saveRule(tx, rule)
			if err != nil {
				return err
			}
			if ok {
				added++
			} else {
				duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appCtx.Logger.Info("imported rules",
		"path", c.File, "added", added, "duplicates", duplicates)

	return nil
}

// RuleList prints the stored firewall rules.
type RuleList struct {
	Direction directionField `help:"Only list rules with this direction."`
	Protocol  protocolField  `help:"Only list rules with this protocol."`
}

// Run the rule list command.
func (c *RuleList) Run(appCtx *actx.Context) error {
	if err := checkInit(appCtx); err != nil {
		return err
	}

	var filter *dbtypes.Filter
	if c.Direction != "" {
		filter = filter.And("r.direction = ?", string(c.Direction))
	}
	if c.Protocol != "" {
		filter = filter.And("r.protocol = ?", string(c.Protocol))
	}

	rules, err := models.Rules(appCtx.DB.NewContext(), appCtx.DB, filter)
	if err != nil {
		return aerrors.NewWithCause("failed listing rules", err)
	}
	if len(rules) == 0 {
		return nil
	}

	header := []string{"ID", "Direction", "Protocol", "Port", "Address"}
	data := make([][]string, 0, len(rules))
	for _, r := range rules {
		data = append(data, []string{
			r.UUID, string(r.Direction()), string(r.Protocol()), r.PortSpec(), r.IPSpec(),
		})
	}

	if err = renderTable(appCtx.Stdout, header, data); err != nil {
		return aerrors.NewWithCause("failed rendering table", err)
	}

	return nil
}

// RuleCoverage prints the merged address ranges of stored rules, for each
// direction and protocol.
type RuleCoverage struct{}

// Run the rule coverage command.
func (c *RuleCoverage) Run(appCtx *actx.Context) error {
	if err := checkInit(appCtx); err != nil {
		return err
	}

	rules, err := models.Rules(appCtx.DB.NewContext(), appCtx.DB, nil)
	if err != nil {
		return aerrors.NewWithCause("failed listing rules", err)
	}
	if len(rules) == 0 {
		return nil
	}

	type slot struct {
		dir   ftypes.Direction
		proto ftypes.Protocol
	}
	groups := map[slot][]ftypes.Rule{}
	for _, r := range rules {
		s := slot{r.Direction(), r.Protocol()}
		groups[s] = append(groups[s], r.Rule)
	}

	header := []string{"Direction", "Protocol", "Rules", "Address Ranges"}
	var data [][]string
	for _, dir := range []ftypes.Direction{ftypes.Inbound, ftypes.Outbound} {
		for _, proto := range []ftypes.Protocol{ftypes.TCP, ftypes.UDP} {
			group, ok := groups[slot{dir, proto}]
			if !ok {
				continue
			}
			ipSet, err := firewall.AddressCoverage(group...)
			if err != nil {
				return aerrors.NewWithCause("failed computing address coverage", err)
			}
			ranges := ipSet.Ranges()
			rangesStr := make([]string, 0, len(ranges))
			for _, r := range ranges {
				rangesStr = append(rangesStr, r.String())
			}
			data = append(data, []string{
				string(dir), string(proto), fmt.Sprint(len(group)), strings.Join(rangesStr, " "),
			})
		}
	}

	if err = renderTable(appCtx.Stdout, header, data); err != nil {
		return aerrors.NewWithCause("failed rendering table", err)
	}

	return nil
}

// saveRule stores the rule, and returns false if an equal rule was already
// stored.
func saveRule(q dbtypes.Querier, rule ftypes.Rule) (bool, error) {
	r := &models.Rule{Rule: rule}
	err := r.Save(q.NewContext(), q)
	var dupErr *dbtypes.DuplicateError
	if errors.As(err, &dupErr) {
		return false, nil
	}
	if err != nil {
		return false, aerrors.NewWithCause("failed saving rule", err, "rule", rule.String())
	}

	return true, nil
}

func readRulesFile(fs vfs.FileSystem, path string) ([]ftypes.Rule, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, aerrors.NewWithCause("failed opening rules file", err, "path", path)
	}
	defer f.Close()

	rules, err := firewall.ReadRulesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed loading rules file '%s': %w", path, err)
	}

	return rules, nil
}

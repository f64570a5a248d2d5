package firewall

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	ftypes "go.hackfix.me/portcullis/firewall/types"
)

var csvHeader = []string{"direction", "protocol", "port", "ip_address"}

// ReadRulesCSV reads firewall rules from comma-separated records of the form
// direction,protocol,port,ip_address. An optional header row with those exact
// column names is skipped. Reading stops at the first invalid record.
func ReadRulesCSV(r io.Reader) ([]ftypes.Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rules []ftypes.Rule
	for first := true; ; first = false {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed reading rules: %w", err)
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if first && slices.Equal(record, csvHeader) {
			continue
		}

		rule, err := ftypes.NewRule(record[0], record[1], record[2], record[3])
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("failed parsing rule on line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

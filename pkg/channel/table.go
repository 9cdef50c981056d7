package channel

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	columnChannelID    = "channel id"
	columnThreshold    = "threshold"
	columnThresholdLow = "threshold low"
)

// TableRow is one channel of a selection table.
type TableRow struct {
	ID           string
	Flags        map[Role]bool
	Threshold    float64
	ThresholdLow float64
	HasThreshold bool
	HasLow       bool
}

// SelectionTable is a per-channel selection file.
type SelectionTable struct {
	Rows  []TableRow
	roles []Role
}

type tableLayout struct {
	id           int
	threshold    int
	thresholdLow int
	roles        []Role
	roleColumns  []int
}

// ReadSelectionTable reads a comma or tab separated selection table. The
// delimiter is taken from the header line. A "channel id" column is required;
// every column named after one of roles holds that role's flags and every role
// must have a column. Nucleus and Cell are used when no role is given.
func ReadSelectionTable(r io.Reader, roles ...Role) (*SelectionTable, error) {
	if len(roles) == 0 {
		roles = []Role{Nucleus, Cell}
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read selection table")
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = detectDelimiter(content)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(ErrSelectionAmbiguous, "unable to read selection table header: %v", err)
	}
	layout, err := parseHeader(header, roles)
	if err != nil {
		return nil, err
	}

	table := &SelectionTable{roles: layout.roles}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrSelectionAmbiguous, "malformed selection table: %v", err)
		}
		row, err := parseRow(record, layout)
		if err != nil {
			return nil, errors.Wrapf(err, "selection table line %d", line)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func detectDelimiter(content []byte) rune {
	firstLine, _, _ := bytes.Cut(content, []byte("\n"))
	if bytes.ContainsRune(firstLine, '\t') {
		return '\t'
	}

	return ','
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	return strings.Join(strings.Fields(name), " ")
}

// roleOfColumn accepts "<role>", "segmentation <role>" and "<role> channel".
func roleOfColumn(name string, roles []Role) (Role, bool) {
	name = strings.TrimPrefix(name, "segmentation ")
	name = strings.TrimPrefix(name, "is ")
	name = strings.TrimSuffix(name, " channel")
	for _, role := range roles {
		if name == normalizeHeader(string(role)) {
			return role, true
		}
	}

	return "", false
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}

func parseHeader(header []string, roles []Role) (tableLayout, error) {
	layout := tableLayout{id: -1, threshold: -1, thresholdLow: -1}
	for i, raw := range header {
		name := normalizeHeader(raw)
		switch name {
		case columnChannelID:
			layout.id = i
		case columnThreshold:
			layout.threshold = i
		case columnThresholdLow:
			layout.thresholdLow = i
		default:
			role, ok := roleOfColumn(name, roles)
			if !ok {
				continue
			}
			if containsRole(layout.roles, role) {
				return layout, errors.Wrapf(ErrSelectionAmbiguous, "two columns select role %q", role)
			}
			layout.roles = append(layout.roles, role)
			layout.roleColumns = append(layout.roleColumns, i)
		}
	}
	if layout.id < 0 {
		return layout, errors.Wrapf(ErrSelectionAmbiguous, "selection table has no %q column", columnChannelID)
	}
	for _, role := range roles {
		if !containsRole(layout.roles, role) {
			return layout, errors.Wrapf(ErrSelectionAmbiguous, "selection table has no column for role %q", role)
		}
	}

	return layout, nil
}

func parseRow(record []string, layout tableLayout) (TableRow, error) {
	row := TableRow{
		ID:    strings.TrimSpace(record[layout.id]),
		Flags: make(map[Role]bool, len(layout.roles)),
	}
	if row.ID == "" {
		return row, errors.Wrap(ErrSelectionAmbiguous, "empty channel id")
	}
	for i, role := range layout.roles {
		row.Flags[role] = IsTruthy(record[layout.roleColumns[i]])
	}

	var err error
	if layout.threshold >= 0 {
		row.Threshold, row.HasThreshold, err = parseThreshold(record[layout.threshold])
		if err != nil {
			return row, err
		}
	}
	if layout.thresholdLow >= 0 {
		row.ThresholdLow, row.HasLow, err = parseThreshold(record[layout.thresholdLow])
		if err != nil {
			return row, err
		}
	}

	return row, nil
}

func parseThreshold(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, errors.Wrapf(ErrSelectionAmbiguous, "invalid threshold %q", raw)
	}
	if math.IsNaN(value) {
		return 0, false, nil
	}

	return value, true, nil
}

// IsTruthy reports whether a flag cell selects its channel.
func IsTruthy(flag string) bool {
	flag = strings.TrimSpace(flag)

	return strings.EqualFold(flag, "yes") || strings.EqualFold(flag, "true")
}

// Roles returns the roles having a column in the table, in column order.
func (t *SelectionTable) Roles() []Role {
	return append([]Role(nil), t.roles...)
}

// Request builds one FlagTable selection per role column.
func (t *SelectionTable) Request() Request {
	var req Request
	for _, role := range t.roles {
		flags := make(FlagTable, len(t.Rows))
		for i, row := range t.Rows {
			flags[i] = FlagRow{ID: row.ID, Flag: row.Flags[role]}
		}
		req.Add(role, flags)
	}

	return req
}

// Thresholds returns the threshold of every channel id declaring one.
func (t *SelectionTable) Thresholds() map[string]float64 {
	out := make(map[string]float64)
	for _, row := range t.Rows {
		if row.HasThreshold {
			out[row.ID] = row.Threshold
		}
	}

	return out
}

// ThresholdsLow returns the low threshold of every channel id declaring one.
func (t *SelectionTable) ThresholdsLow() map[string]float64 {
	out := make(map[string]float64)
	for _, row := range t.Rows {
		if row.HasLow {
			out[row.ID] = row.ThresholdLow
		}
	}

	return out
}

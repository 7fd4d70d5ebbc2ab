package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/plants"
)

// PlantAssignMode enumerates supported execution strategies.
type PlantAssignMode string

const (
	// PlantAssignModeDry previews assignment changes without applying them.
	PlantAssignModeDry PlantAssignMode = "dry"
	// PlantAssignModeApply persists assignments after confirmation.
	PlantAssignModeApply PlantAssignMode = "apply"
)

// PlantAssignmentStore reads and replaces plant assignments by account
// name. The users repository satisfies it.
type PlantAssignmentStore interface {
	PlantsByUsername(ctx context.Context, username string) ([]string, error)
	ReplacePlantsByUsername(ctx context.Context, username string, codes []string) error
}

// PlantOpsCLI applies bulk plant assignment changes sourced from CSV,
// the route plant lists usually arrive on from site onboarding.
type PlantOpsCLI struct {
	store PlantAssignmentStore
}

// NewPlantOpsCLI constructs the helper around an assignment store.
func NewPlantOpsCLI(store PlantAssignmentStore) (*PlantOpsCLI, error) {
	if store == nil {
		return nil, errors.New("plant cli: store is required")
	}
	return &PlantOpsCLI{store: store}, nil
}

// PlantAssignOptions configures the assign command execution.
type PlantAssignOptions struct {
	Mode         PlantAssignMode
	Source       string
	SourceReader io.Reader
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
	Stdin        io.Reader
	Confirm      func(io.Reader, io.Writer) (bool, error)
}

// PlantAssignChange describes one account whose assignment differs from
// the desired state.
type PlantAssignChange struct {
	Username string   `json:"username"`
	Current  []string `json:"current"`
	Desired  []string `json:"desired"`
}

// PlantAssignSummary captures the structured reporting outcome.
type PlantAssignSummary struct {
	Mode      PlantAssignMode     `json:"mode"`
	Unchanged int                 `json:"unchanged"`
	Changes   []PlantAssignChange `json:"changes"`
	Applied   []string            `json:"applied,omitempty"`
}

// AssignCommand executes the plant assignment backfill workflow. In dry
// mode pending changes yield exit code 10 so scripts can gate on drift.
func (c *PlantOpsCLI) AssignCommand(ctx context.Context, opts PlantAssignOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Mode == "" {
		opts.Mode = PlantAssignModeDry
	}
	mode := PlantAssignMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case PlantAssignModeDry, PlantAssignModeApply:
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "plant assign: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}

	desired, err := loadAssignRows(opts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "plant assign: %v\n", err)
		return 1
	}
	if len(desired) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "plant assign: source contains no assignments")
		return 1
	}

	summary := PlantAssignSummary{Mode: mode}
	for _, row := range desired {
		current, err := c.store.PlantsByUsername(ctx, row.Username)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "plant assign: load %s: %v\n", row.Username, err)
			return 1
		}
		if equalCodes(current, row.Desired) {
			summary.Unchanged++
			continue
		}
		summary.Changes = append(summary.Changes, PlantAssignChange{
			Username: row.Username,
			Current:  current,
			Desired:  row.Desired,
		})
	}
	sort.Slice(summary.Changes, func(i, j int) bool {
		return summary.Changes[i].Username < summary.Changes[j].Username
	})

	if mode == PlantAssignModeDry || len(summary.Changes) == 0 {
		if err := writeAssignOutput(opts, summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "plant assign: %v\n", err)
			return 1
		}
		if mode == PlantAssignModeDry && len(summary.Changes) > 0 {
			return 10
		}
		return 0
	}

	confirm := opts.Confirm
	if confirm == nil {
		confirm = defaultAssignConfirm
	}
	ok, err := confirm(opts.Stdin, opts.Stdout)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "plant assign: confirmation failed: %v\n", err)
		return 1
	}
	if !ok {
		_, _ = fmt.Fprintln(opts.Stderr, "plant assign: cancelled by user")
		return 1
	}

	for _, change := range summary.Changes {
		if err := c.store.ReplacePlantsByUsername(ctx, change.Username, change.Desired); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "plant assign: apply %s: %v\n", change.Username, err)
			return 1
		}
		summary.Applied = append(summary.Applied, change.Username)
	}
	if err := writeAssignOutput(opts, summary); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "plant assign: %v\n", err)
		return 1
	}
	return 0
}

type assignRow struct {
	Username string
	Desired  []string
}

func loadAssignRows(opts PlantAssignOptions) ([]assignRow, error) {
	var data []byte
	var err error
	switch {
	case opts.SourceReader != nil:
		data, err = io.ReadAll(opts.SourceReader)
	case opts.Source == "-":
		if opts.Stdin == nil {
			return nil, errors.New("source - requires stdin")
		}
		data, err = io.ReadAll(opts.Stdin)
	case strings.TrimSpace(opts.Source) == "":
		return nil, errors.New("--source is required")
	default:
		data, err = os.ReadFile(opts.Source)
	}
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	header, err := nextNonEmptyRecord(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	usernameIdx, plantsIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "username", "user":
			usernameIdx = i
		case "plants", "plant_codes":
			plantsIdx = i
		}
	}
	if usernameIdx < 0 || plantsIdx < 0 {
		return nil, errors.New("missing required columns in source (need username, plants)")
	}

	seen := make(map[string]struct{})
	var rows []assignRow
	for {
		record, err := nextNonEmptyRecord(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if usernameIdx >= len(record) || plantsIdx >= len(record) {
			return nil, errors.New("invalid record length in source")
		}
		username := strings.TrimSpace(record[usernameIdx])
		if username == "" {
			continue
		}
		if _, dup := seen[username]; dup {
			return nil, fmt.Errorf("duplicate row for %s in source", username)
		}
		seen[username] = struct{}{}
		codes, err := parsePlantList(record[plantsIdx])
		if err != nil {
			return nil, fmt.Errorf("row for %s: %w", username, err)
		}
		rows = append(rows, assignRow{Username: username, Desired: codes})
	}
	return rows, nil
}

// parsePlantList splits a plants cell on semicolons or whitespace. An
// empty cell clears the assignment.
func parsePlantList(cell string) ([]string, error) {
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t'
	})
	codes := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		code := strings.TrimSpace(field)
		if code == "" {
			continue
		}
		if !plants.ValidCode(code) {
			return nil, fmt.Errorf("invalid plant code %q", code)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func nextNonEmptyRecord(r *csv.Reader) ([]string, error) {
	for {
		record, err := r.Read()
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		skip := true
		for _, field := range record {
			trimmed := strings.TrimSpace(field)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			skip = false
		}
		if skip {
			continue
		}
		return record, nil
	}
}

func equalCodes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeAssignOutput(opts PlantAssignOptions, summary PlantAssignSummary) error {
	if opts.JSONOutput {
		return json.NewEncoder(opts.Stdout).Encode(summary)
	}
	renderAssignHuman(opts.Stdout, summary)
	return nil
}

func renderAssignHuman(out io.Writer, summary PlantAssignSummary) {
	_, _ = fmt.Fprintf(out, "Plant assignment backfill (%s)\n", summary.Mode)
	if len(summary.Changes) == 0 {
		_, _ = fmt.Fprintf(out, "No changes pending (%d account(s) already match).\n", summary.Unchanged)
		return
	}
	_, _ = fmt.Fprintf(out, "%d change(s) pending, %d account(s) unchanged:\n", len(summary.Changes), summary.Unchanged)
	for _, change := range summary.Changes {
		_, _ = fmt.Fprintf(out, " - %s: [%s] -> [%s]\n",
			change.Username, strings.Join(change.Current, ", "), strings.Join(change.Desired, ", "))
	}
	if len(summary.Applied) > 0 {
		_, _ = fmt.Fprintf(out, "Applied to %d account(s): %s\n",
			len(summary.Applied), strings.Join(summary.Applied, ", "))
	}
}

func defaultAssignConfirm(r io.Reader, w io.Writer) (bool, error) {
	_, _ = fmt.Fprint(w, "Apply plant assignments? Type YES to confirm: ")
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response := strings.TrimSpace(line)
	return strings.EqualFold(response, "YES"), nil
}

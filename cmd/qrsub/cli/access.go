package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// AccessSource loads the effective access snapshot for an account name.
// The rbac service satisfies it directly; tests plug in stubs.
type AccessSource interface {
	Load(ctx context.Context, username string) (*rbac.UserAccess, error)
}

// AccessOpsCLI offers operational helpers for answering "why was this
// user denied" questions without touching the running server.
type AccessOpsCLI struct {
	source AccessSource
}

// NewAccessOpsCLI constructs a new helper instance.
func NewAccessOpsCLI(source AccessSource) (*AccessOpsCLI, error) {
	if source == nil {
		return nil, errors.New("access cli: source is required")
	}
	return &AccessOpsCLI{source: source}, nil
}

// AccessCheckOptions defines available flags for the access check command.
type AccessCheckOptions struct {
	Username   string
	Roles      []string
	RequireAll bool
	NoBypass   bool
	Plant      string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// AccessCheckSummary describes the JSON response for access check.
type AccessCheckSummary struct {
	Username     string   `json:"username"`
	Granted      bool     `json:"granted"`
	Reason       string   `json:"reason"`
	PrimaryRole  string   `json:"primary_role,omitempty"`
	Roles        []string `json:"roles"`
	Plants       []string `json:"plants,omitempty"`
	PlantChecked string   `json:"plant_checked,omitempty"`
	PlantGranted *bool    `json:"plant_granted,omitempty"`
}

// CheckCommand replays an access decision for a user against a role
// policy and prints the outcome. Exit code 10 signals a denial so
// scripts can distinguish it from operational failures.
func (c *AccessOpsCLI) CheckCommand(ctx context.Context, opts AccessCheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "access check: --user is required")
		return 1
	}
	if len(opts.Roles) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "access check: at least one --role is required")
		return 1
	}
	roles := make([]rbac.RoleType, 0, len(opts.Roles))
	for _, raw := range opts.Roles {
		role, err := rbac.ParseRoleType(raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "access check: invalid role %q\n", raw)
			return 1
		}
		roles = append(roles, role)
	}
	plant := strings.TrimSpace(opts.Plant)

	access, err := c.source.Load(ctx, username)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "access check: %v\n", err)
		return 1
	}
	authCtx, err := rbac.NewAuthContext(access)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "access check: %v\n", err)
		return 1
	}

	policy := rbac.RequireAnyRole(roles...)
	if opts.RequireAll {
		policy = rbac.RequireAllRoles(roles...)
	}
	if opts.NoBypass {
		policy = policy.WithoutAdminBypass()
	}
	decision := rbac.Evaluate(authCtx, policy)

	summary := buildCheckSummary(authCtx, decision, plant)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "access check: encode json: %v\n", err)
			return 1
		}
	} else {
		renderCheckHuman(opts.Stdout, summary)
	}
	if !summary.Granted {
		return 10
	}
	if summary.PlantGranted != nil && !*summary.PlantGranted {
		return 10
	}
	return 0
}

func buildCheckSummary(authCtx *rbac.AuthContext, decision rbac.Decision, plant string) AccessCheckSummary {
	roles := make([]string, len(authCtx.Roles))
	for i, role := range authCtx.Roles {
		roles[i] = string(role)
	}
	sort.Strings(roles)
	summary := AccessCheckSummary{
		Username:    authCtx.Username,
		Granted:     decision.Allowed,
		Reason:      decision.Reason,
		PrimaryRole: string(authCtx.PrimaryRole),
		Roles:       roles,
		Plants:      append([]string(nil), authCtx.Plants...),
	}
	if plant != "" {
		// Admins and non-plant roles see every plant; only the plant
		// role is confined to its assignment.
		allowed := authCtx.IsAdmin || !authCtx.PlantScoped() || authCtx.HasPlant(plant)
		summary.PlantChecked = plant
		summary.PlantGranted = &allowed
	}
	return summary
}

func renderCheckHuman(out io.Writer, summary AccessCheckSummary) {
	verdict := "DENIED"
	if summary.Granted {
		verdict = "GRANTED"
	}
	_, _ = fmt.Fprintf(out, "Access check for %s: %s (%s)\n", summary.Username, verdict, summary.Reason)
	_, _ = fmt.Fprintf(out, "Roles: %s", strings.Join(summary.Roles, ", "))
	if summary.PrimaryRole != "" {
		_, _ = fmt.Fprintf(out, " (primary %s)", summary.PrimaryRole)
	}
	_, _ = fmt.Fprintln(out)
	if len(summary.Plants) > 0 {
		_, _ = fmt.Fprintf(out, "Plants: %s\n", strings.Join(summary.Plants, ", "))
	}
	if summary.PlantGranted != nil {
		plantVerdict := "denied"
		if *summary.PlantGranted {
			plantVerdict = "allowed"
		}
		_, _ = fmt.Fprintf(out, "Plant %s: %s\n", summary.PlantChecked, plantVerdict)
	}
}

package rbac

import (
	"net/url"
	"regexp"
	"strings"
)

// DataType tags the broad entity family a route serves. The gatekeeper
// derives it from the path and checks it against the role's allowance.
type DataType string

const (
	DataDocument DataType = "Document"
	DataWorkflow DataType = "Workflow"
	DataQuery    DataType = "Query"
	DataUser     DataType = "User"
	DataRole     DataType = "Role"
	DataProject  DataType = "Project"
	DataReport   DataType = "Report"
)

// dataTypePatterns maps path substrings onto data types. First match
// wins; "material" routes serve workflow data.
var dataTypePatterns = []struct {
	substr string
	dt     DataType
}{
	{"document", DataDocument},
	{"workflow", DataWorkflow},
	{"material", DataWorkflow},
	{"quer", DataQuery},
	{"user", DataUser},
	{"role", DataRole},
	{"project", DataProject},
	{"report", DataReport},
}

func classifyPath(path string) (DataType, bool) {
	lower := strings.ToLower(path)
	for _, p := range dataTypePatterns {
		if strings.Contains(lower, p.substr) {
			return p.dt, true
		}
	}
	return "", false
}

// roleDataAccess is the role to data-type allowance consulted for
// ordinary (non-admin) routes, keyed by the caller's primary role.
var roleDataAccess = map[RoleType][]DataType{
	RoleAdmin: {DataDocument, DataWorkflow, DataQuery, DataUser, DataRole, DataProject, DataReport},
	RoleJVC:   {DataDocument, DataWorkflow, DataQuery, DataProject, DataReport},
	RoleCQS:   {DataDocument, DataWorkflow, DataQuery, DataReport},
	RoleTech:  {DataDocument, DataWorkflow, DataQuery, DataReport},
	RolePlant: {DataDocument, DataWorkflow, DataQuery, DataReport},
}

func roleCanAccess(role RoleType, dt DataType) bool {
	for _, allowed := range roleDataAccess[role] {
		if allowed == dt {
			return true
		}
	}
	return false
}

// plantOwned marks the data types whose entities belong to a plant and
// therefore get the additional plant check for plant-restricted roles.
var plantOwned = map[DataType]bool{
	DataDocument: true,
	DataWorkflow: true,
	DataQuery:    true,
	DataReport:   true,
}

// screen describes one admin route family: which non-admin roles may
// enter it, and where a plant qualifier lives when the route carries
// one. An explicit binding beats the best-effort fallback.
type screen struct {
	name         string
	roles        []RoleType
	plantSegment string // path segment whose successor is a plant code
	plantQuery   string // query parameter carrying a plant code
}

func (s screen) allows(role RoleType) bool {
	for _, r := range s.roles {
		if r == role {
			return true
		}
	}
	return false
}

// extractPlant finds the plant qualifier for this screen, explicit
// bindings first.
func (s screen) extractPlant(path string, query url.Values) (string, bool) {
	if s.plantSegment != "" {
		segments := strings.Split(strings.Trim(path, "/"), "/")
		for i, seg := range segments {
			if seg == s.plantSegment && i+1 < len(segments) {
				return segments[i+1], true
			}
		}
	}
	if s.plantQuery != "" {
		if v := strings.TrimSpace(query.Get(s.plantQuery)); v != "" {
			return v, true
		}
	}
	if code, ok := queryPlantCode(query); ok {
		return code, true
	}
	return pathPlantCode(path)
}

// adminScreens is the role to screen access table, keyed by the first
// path segment after the admin prefix. A screen with no roles is
// reachable by administrators only.
var adminScreens = map[string]screen{
	"users":  {name: "User Management"},
	"roles":  {name: "Role Management"},
	"plants": {name: "Plant Master"},
	"jobs":   {name: "Job Monitor"},
	"plant-access": {
		name:         "Plant Access",
		roles:        []RoleType{RolePlant},
		plantSegment: "has-access",
		plantQuery:   "plantCode",
	},
}

var plantCodePattern = regexp.MustCompile(`^[0-9]{4}$`)

// queryPlantCode reads the conventional plant query parameters.
func queryPlantCode(query url.Values) (string, bool) {
	for _, key := range []string{"plantCode", "plant_code", "plant"} {
		if v := strings.TrimSpace(query.Get(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

// pathPlantCode scans path segments for a plant-code shape. Kept for
// screen fallback only; ordinary routes carry numeric entity IDs that
// would collide with it.
func pathPlantCode(path string) (string, bool) {
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if plantCodePattern.MatchString(seg) {
			return seg, true
		}
	}
	return "", false
}

func firstSegment(rest string) string {
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

package channel

// Role is the segmentation purpose of a group of channels.
type Role string

const (
	Nucleus Role = "nucleus"
	Cell    Role = "cell"
)

// Selection is how a role designates its channels. It is implemented by
// SingleName, CandidateList and FlagTable only.
type Selection interface {
	// Keys returns the ids or names the selection refers to, in order.
	Keys() []string
	resolve(cat *Catalog) ([]match, error)
}

// match is one key of a selection and the channels it resolved to.
type match struct {
	key     string
	indices []int
}

// SingleName selects the channel with the given id, or name when no channel
// has that id.
type SingleName string

func (s SingleName) Keys() []string {
	return []string{string(s)}
}

func (s SingleName) resolve(cat *Catalog) ([]match, error) {
	return CandidateList{string(s)}.resolve(cat)
}

// CandidateList selects the first candidate matching a channel id. Names are
// only considered when no candidate matches an id.
type CandidateList []string

func (c CandidateList) Keys() []string {
	out := make([]string, len(c))
	copy(out, c)

	return out
}

func (c CandidateList) resolve(cat *Catalog) ([]match, error) {
	for _, key := range c {
		if indices := cat.ByID(key); len(indices) > 0 {
			return []match{{key: key, indices: indices}}, nil
		}
	}
	for _, key := range c {
		if indices := cat.ByName(key); len(indices) > 0 {
			return []match{{key: key, indices: indices}}, nil
		}
	}

	return nil, nil
}

// FlagRow is one row of a selection table.
type FlagRow struct {
	ID   string
	Flag bool
}

// FlagTable selects every flagged row. Each flagged row must match a channel
// id, or a channel name when no id matches.
type FlagTable []FlagRow

func (f FlagTable) Keys() []string {
	keys := make([]string, 0, len(f))
	for _, row := range f {
		if row.Flag {
			keys = append(keys, row.ID)
		}
	}

	return keys
}

func (f FlagTable) resolve(cat *Catalog) ([]match, error) {
	matches := make([]match, 0, len(f))
	for _, row := range f {
		if !row.Flag {
			continue
		}
		indices := cat.ByID(row.ID)
		if len(indices) == 0 {
			indices = cat.ByName(row.ID)
		}
		if len(indices) == 0 {
			return nil, &NotFoundError{Keys: []string{row.ID}}
		}
		matches = append(matches, match{key: row.ID, indices: indices})
	}

	return matches, nil
}

// RoleSelection pairs a role with its selection.
type RoleSelection struct {
	Role      Role
	Selection Selection
}

// Request lists the selections of every role in caller order.
type Request struct {
	Entries []RoleSelection
}

// Add appends a role selection to the request.
func (r *Request) Add(role Role, sel Selection) {
	r.Entries = append(r.Entries, RoleSelection{Role: role, Selection: sel})
}

// Roles returns the requested roles in order.
func (r Request) Roles() []Role {
	roles := make([]Role, len(r.Entries))
	for i, e := range r.Entries {
		roles[i] = e.Role
	}

	return roles
}

// Require fails with a *NotFoundError naming the first of roles the request
// does not select.
func (r Request) Require(roles ...Role) error {
	for _, role := range roles {
		if !containsRole(r.Roles(), role) {
			return &NotFoundError{Role: role}
		}
	}

	return nil
}

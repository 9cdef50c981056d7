package channel

import (
	"github.com/pkg/errors"
)

// AlgorithmVersion identifies the resolution rules implemented by Resolve. It
// is recorded next to every resolution persisted in image metadata.
const AlgorithmVersion = "id-first-name-fallback/1"

// Resolution maps each requested role to the indices of its channels.
type Resolution struct {
	roles   []Role
	indices map[Role][]int
	keys    map[Role][]string
}

// Roles returns the resolved roles in request order.
func (r *Resolution) Roles() []Role {
	out := make([]Role, len(r.roles))
	copy(out, r.roles)

	return out
}

// Indices returns the channel indices of role in resolution order.
func (r *Resolution) Indices(role Role) []int {
	indices, ok := r.indices[role]
	if !ok {
		return nil
	}

	return append([]int(nil), indices...)
}

// Keys returns the selection keys that resolved for role.
func (r *Resolution) Keys(role Role) []string {
	keys := r.keys[role]
	out := make([]string, len(keys))
	copy(out, keys)

	return out
}

// Map returns role to indices, as written to segmentation_channel_ids.
func (r *Resolution) Map() map[string][]int {
	out := make(map[string][]int, len(r.indices))
	for role, indices := range r.indices {
		out[string(role)] = append([]int(nil), indices...)
	}

	return out
}

// Names returns, per role, the names of the resolved channels.
func (r *Resolution) Names(cat *Catalog) map[Role][]string {
	out := make(map[Role][]string, len(r.roles))
	for _, role := range r.roles {
		out[role] = cat.Names(r.indices[role])
	}

	return out
}

// All returns every resolved index, role by role.
func (r *Resolution) All() []int {
	var all []int
	for _, role := range r.roles {
		all = append(all, r.indices[role]...)
	}

	return all
}

// Resolve applies req to cat.
//
// Candidates are matched by id before name, the first matching candidate of a
// list wins, and every flagged row of a table must match. A role matching no
// channel fails with a *NotFoundError. A channel claimed by two roles fails
// with an *AmbiguousError.
func Resolve(cat *Catalog, req Request) (*Resolution, error) {
	if cat == nil {
		return nil, errors.New("catalog must be set")
	}
	if len(req.Entries) == 0 {
		return nil, errors.Wrap(ErrSelectionNotFound, "request selects no role")
	}

	res := &Resolution{
		roles:   make([]Role, 0, len(req.Entries)),
		indices: make(map[Role][]int, len(req.Entries)),
		keys:    make(map[Role][]string, len(req.Entries)),
	}
	claims := make(map[int]Role, cat.Len())

	for _, entry := range req.Entries {
		if entry.Role == "" {
			return nil, errors.Wrap(ErrSelectionAmbiguous, "empty role")
		}
		if entry.Selection == nil {
			return nil, &NotFoundError{Role: entry.Role}
		}
		if _, ok := res.indices[entry.Role]; ok {
			return nil, errors.Wrapf(ErrSelectionAmbiguous, "role %q requested twice", entry.Role)
		}

		matches, err := entry.Selection.resolve(cat)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				nf.Role = entry.Role
			}

			return nil, err
		}
		if len(matches) == 0 {
			return nil, &NotFoundError{Role: entry.Role, Keys: entry.Selection.Keys()}
		}

		indices := make([]int, 0, len(matches))
		keys := make([]string, 0, len(matches))
		seen := make(map[int]struct{}, len(matches))
		for _, m := range matches {
			keys = append(keys, m.key)
			for _, idx := range m.indices {
				if prev, ok := claims[idx]; ok && prev != entry.Role {
					return nil, &AmbiguousError{Index: idx, Key: m.key, Roles: [2]Role{prev, entry.Role}}
				}
				claims[idx] = entry.Role
				if _, dup := seen[idx]; dup {
					continue
				}
				seen[idx] = struct{}{}
				indices = append(indices, idx)
			}
		}

		res.roles = append(res.roles, entry.Role)
		res.indices[entry.Role] = indices
		res.keys[entry.Role] = keys
	}

	return res, nil
}

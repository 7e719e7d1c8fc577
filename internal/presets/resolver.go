// Package presets resolves named hyperparameter bags per model key.
//
// Presets live in the configuration under [presets.<model_key>.<name>];
// this package is a pure lookup over that structure.
package presets

import (
	"sort"
	"strings"

	"maskd/pkg/types"
)

// Resolver looks up preset parameter bags. It holds a read-only view of
// the configuration's preset tables.
type Resolver struct {
	groups map[string]map[string]types.Params
}

// NewResolver builds a resolver over the configured preset groups.
func NewResolver(groups map[string]map[string]types.Params) *Resolver {
	if groups == nil {
		groups = map[string]map[string]types.Params{}
	}
	return &Resolver{groups: groups}
}

// Resolve returns the parameter bag for (modelKey, presetName). The
// returned map is a copy; callers may not mutate shared state through it.
func (r *Resolver) Resolve(modelKey, presetName string) (types.Params, error) {
	group, ok := r.groups[modelKey]
	if !ok {
		return nil, types.Configuration(
			"no presets found for model key %q; available preset groups: %s",
			modelKey, joinKeys(keysOfGroups(r.groups)))
	}
	params, ok := group[presetName]
	if !ok {
		return nil, types.Configuration(
			"preset %q not defined for model %q; available presets: %s",
			presetName, modelKey, joinKeys(keysOfParams(group)))
	}
	out := make(types.Params, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out, nil
}

// Names returns the sorted preset names defined for a model key.
func (r *Resolver) Names(modelKey string) []string {
	group, ok := r.groups[modelKey]
	if !ok {
		return nil
	}
	return keysOfParams(group)
}

func keysOfGroups(m map[string]map[string]types.Params) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func keysOfParams(m map[string]types.Params) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinKeys(keys []string) string {
	if len(keys) == 0 {
		return "(none)"
	}
	return strings.Join(keys, ", ")
}

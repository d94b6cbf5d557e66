package plugin

import "sort"

// Registry holds the filters and actions enabled for this server instance.
// It is assembled once at startup and read-only afterwards, so no locking.
type Registry struct {
	filters map[string]Filter
	actions map[string]Action
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string]Filter),
		actions: make(map[string]Action),
	}
}

// AddFilter registers a filter under its ID.
func (r *Registry) AddFilter(f Filter) {
	r.filters[f.ID()] = f
}

// AddAction registers an action under its ID.
func (r *Registry) AddAction(a Action) {
	r.actions[a.ID()] = a
}

// Filter returns the filter with the given ID, or nil.
func (r *Registry) Filter(id string) Filter {
	return r.filters[id]
}

// Action returns the action with the given ID, or nil.
func (r *Registry) Action(id string) Action {
	return r.actions[id]
}

// FilterIDs returns all registered filter IDs, sorted.
func (r *Registry) FilterIDs() []string {
	ids := make([]string, 0, len(r.filters))
	for id := range r.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActionIDs returns all registered action IDs, sorted.
func (r *Registry) ActionIDs() []string {
	ids := make([]string, 0, len(r.actions))
	for id := range r.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

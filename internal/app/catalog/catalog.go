// Package catalog holds the static action catalog: the mapping from
// action-type identifiers to XP value and category. XP values are
// configuration data, not architecture — the catalog is built from the
// daemon config and is immutable afterwards.
package catalog

import (
	"sort"

	"github.com/bloom-health/bloom/internal/domain"
)

// Catalog validates action types and resolves their XP values.
type Catalog struct {
	actions map[string]domain.ActionDef
}

// New builds a catalog from action definitions. Later duplicates of the
// same type win, so config can override defaults entry by entry.
func New(defs []domain.ActionDef) *Catalog {
	actions := make(map[string]domain.ActionDef, len(defs))
	for _, def := range defs {
		actions[def.Type] = def
	}
	return &Catalog{actions: actions}
}

// Defaults returns the built-in action table. Every value here can be
// overridden from config.toml.
func Defaults() []domain.ActionDef {
	return []domain.ActionDef{
		{Type: "mood_log", XP: 5, Category: "tracking"},
		{Type: "journal_entry", XP: 10, Category: "journaling"},
		{Type: "gratitude_note", XP: 5, Category: "journaling"},
		{Type: "meditation_session", XP: 15, Category: "practice"},
		{Type: "breathing_exercise", XP: 5, Category: "practice"},
		{Type: "sleep_log", XP: 5, Category: "tracking"},
		{Type: "assessment_completed", XP: 20, Category: "assessment"},
		{Type: "community_post", XP: 10, Category: "community"},
		{Type: "community_reply", XP: 5, Category: "community"},
		{Type: "therapy_session", XP: 25, Category: "therapy"},
		{Type: "challenge_task", XP: 10, Category: "challenge"},
	}
}

// Lookup resolves an action type. Unknown types fail validation — the
// engine never credits an action it does not recognize.
func (c *Catalog) Lookup(actionType string) (domain.ActionDef, error) {
	def, ok := c.actions[actionType]
	if !ok {
		return domain.ActionDef{}, domain.Validationf("unknown action type %q", actionType)
	}
	return def, nil
}

// Has reports whether the action type is known.
func (c *Catalog) Has(actionType string) bool {
	_, ok := c.actions[actionType]
	return ok
}

// List returns all action definitions sorted by type, for display.
func (c *Catalog) List() []domain.ActionDef {
	defs := make([]domain.ActionDef, 0, len(c.actions))
	for _, def := range c.actions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}

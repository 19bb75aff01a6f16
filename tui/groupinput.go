package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// defaultGroups seeds the suggestion vocabulary. The groups known to the
// server are merged in once fetched, so suggestions work even before (or
// without) a successful vocabulary fetch.
var defaultGroups = []string{"admins", "users", "guests"}

// groupInput is the tag-style editor for a user's group memberships:
// committed groups render as tags, the draft line autocompletes against
// the vocabulary. Group names are normalized to trimmed lowercase before
// commit and the committed list never holds duplicates.
type groupInput struct {
	committed   []string
	input       textinput.Model
	suggestions []string
	open        bool // suggestion list visible
	vocab       []string
	disabled    bool
	loading     bool
}

func newGroupInput() groupInput {
	ti := textinput.New()
	ti.Placeholder = "Type to add group"
	ti.CharLimit = 100
	return groupInput{
		input: ti,
		vocab: mergeVocabulary(nil),
	}
}

// mergeVocabulary unions the seed groups with the server-known ones,
// deduplicated and sorted.
func mergeVocabulary(known []string) []string {
	seen := map[string]bool{}
	var all []string
	for _, g := range defaultGroups {
		if !seen[g] {
			seen[g] = true
			all = append(all, g)
		}
	}
	for _, g := range known {
		if !seen[g] {
			seen[g] = true
			all = append(all, g)
		}
	}
	sort.Strings(all)
	return all
}

// withVocabulary replaces the suggestion vocabulary with the seed groups
// merged with known.
func (g groupInput) withVocabulary(known []string) groupInput {
	g.vocab = mergeVocabulary(known)
	return g
}

// withSelection replaces the committed set, e.g. when pre-populating the
// edit form from a fetched user.
func (g groupInput) withSelection(groups []string) groupInput {
	g.committed = append([]string(nil), groups...)
	return g
}

// add commits a candidate group: trim, lowercase, drop if empty or already
// committed. The draft is cleared and the suggestion list closed either
// way, and focus returns to the input.
func (g groupInput) add(candidate string) (groupInput, tea.Cmd) {
	if g.disabled || g.loading {
		return g, nil
	}
	norm := strings.ToLower(strings.TrimSpace(candidate))
	if norm != "" && !contains(g.committed, norm) {
		g.committed = append(g.committed, norm)
	}
	g.input.SetValue("")
	g.suggestions = nil
	g.open = false
	return g, g.input.Focus()
}

// remove drops an exact match from the committed set. Removing a
// non-member is a no-op.
func (g groupInput) remove(name string) groupInput {
	if g.disabled || g.loading {
		return g
	}
	filtered := make([]string, 0, len(g.committed))
	for _, c := range g.committed {
		if c != name {
			filtered = append(filtered, c)
		}
	}
	g.committed = filtered
	return g
}

// handleKey processes a key event while the group field is focused.
func (g groupInput) handleKey(msg tea.KeyMsg) (groupInput, tea.Cmd) {
	if g.disabled || g.loading {
		return g, nil
	}
	switch msg.String() {
	case "enter":
		if strings.TrimSpace(g.input.Value()) != "" {
			return g.add(g.input.Value())
		}
		return g, nil
	case "tab":
		// Complete with the top suggestion.
		if g.open && len(g.suggestions) > 0 {
			return g.add(g.suggestions[0])
		}
		return g, nil
	case "esc":
		// Close suggestions but keep the draft text.
		g.open = false
		return g, nil
	case "backspace":
		if g.input.Value() == "" && len(g.committed) > 0 {
			return g.remove(g.committed[len(g.committed)-1]), nil
		}
	}
	var cmd tea.Cmd
	g.input, cmd = g.input.Update(msg)
	return g.refreshSuggestions(), cmd
}

// refreshSuggestions recomputes the suggestion list from the draft text:
// vocabulary entries not yet committed whose lowercase form contains the
// lowercase draft. The list opens iff the draft is non-empty and at least
// one entry matches.
func (g groupInput) refreshSuggestions() groupInput {
	draft := strings.ToLower(g.input.Value())
	var matched []string
	if draft != "" {
		for _, v := range g.vocab {
			if !contains(g.committed, v) && strings.Contains(strings.ToLower(v), draft) {
				matched = append(matched, v)
			}
		}
	}
	g.suggestions = matched
	g.open = draft != "" && len(matched) > 0
	return g
}

// view renders the committed tags, the draft input, and (when open) the
// suggestion list.
func (g groupInput) view() string {
	var lines []string

	if len(g.committed) > 0 {
		tags := make([]string, len(g.committed))
		for i, c := range g.committed {
			tags[i] = StyleTag.Render(c)
		}
		lines = append(lines, strings.Join(tags, " "))
	}

	switch {
	case g.loading:
		lines = append(lines, StyleDim.Render("Loading groups..."))
	default:
		lines = append(lines, g.input.View())
	}

	if g.open {
		for i, s := range g.suggestions {
			marker := "   "
			if i == 0 {
				marker = " ⇥ " // tab completes the top match
			}
			lines = append(lines, StyleDim.Render(marker+s))
		}
	}

	return strings.Join(lines, "\n")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

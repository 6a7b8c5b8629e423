package agent

import (
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/ashureev/fitfusion/internal/tools"
)

type positional struct {
	index int
	value any
}

// MapParams resolves synthetic positional keys against the tool's parameter
// schema. Named values override positional ones, and username is filled from
// currentUser when the schema has it. Positional values beyond the schema are
// returned as overflow. Unknown tools pass through unchanged.
func MapParams(name tools.Name, raw tools.Args, currentUser string) (mapped tools.Args, overflow []any) {
	schema, ok := tools.Schema(name)
	if !ok {
		return maps.Clone(raw), nil
	}

	var pos []positional
	named := tools.Args{}
	for k, v := range raw {
		if idx, ok := positionalIndex(k); ok {
			pos = append(pos, positional{index: idx, value: v})
			continue
		}
		named[k] = v
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i].index < pos[j].index })

	mapped = tools.Args{}
	for i, p := range pos {
		if i >= len(schema) {
			overflow = append(overflow, p.value)
			continue
		}
		mapped[schema[i]] = p.value
	}
	maps.Copy(mapped, named)

	if _, has := mapped["username"]; !has && currentUser != "" {
		for _, param := range schema {
			if param == "username" {
				mapped["username"] = currentUser
				break
			}
		}
	}
	return mapped, overflow
}

func positionalIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, positionalPrefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

package extraction

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// PatternSet is a full replacement vocabulary for the heuristic engine.
// Deployments with their own product language ship one as a YAML file.
type PatternSet struct {
	Categories    []Pattern `koanf:"categories"`
	ActivityTypes []Pattern `koanf:"activity_types"`
	Priorities    []Pattern `koanf:"priorities"`
}

// LoadPatternSet reads a vocabulary file of the form:
//
//	categories:
//	  - name: sales
//	    regex: "(?i)order|quotation"
//	    weight: 0.8
//	activity_types: [...]
//	priorities: [...]
func LoadPatternSet(path string) (*PatternSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern set: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse pattern set: %w", err)
	}

	var set PatternSet
	if err := k.Unmarshal("", &set); err != nil {
		return nil, fmt.Errorf("unmarshal pattern set: %w", err)
	}
	if len(set.Categories) == 0 && len(set.ActivityTypes) == 0 && len(set.Priorities) == 0 {
		return nil, fmt.Errorf("pattern set %s contains no patterns", path)
	}
	return &set, nil
}

// WithPatternSet replaces the built-in vocabularies. Empty sections keep
// the defaults.
func WithPatternSet(set *PatternSet) Option {
	return func(e *HeuristicEngine) {
		if set == nil {
			return
		}
		if len(set.Categories) > 0 {
			e.categories = compilePatterns(set.Categories)
		}
		if len(set.ActivityTypes) > 0 {
			e.activityTypes = compilePatterns(set.ActivityTypes)
		}
		if len(set.Priorities) > 0 {
			e.priorities = compilePatterns(set.Priorities)
		}
	}
}

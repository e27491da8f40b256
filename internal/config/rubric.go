package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RubricCriterion is one named topic the judge scores.
type RubricCriterion struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// DefaultRubric matches the criteria the evaluator shipped with before the
// rubric became configurable.
func DefaultRubric() []RubricCriterion {
	return []RubricCriterion{
		{Name: "Python Proficiency", Description: "Python programming skills"},
		{Name: "SQL Skills", Description: "SQL database querying skills"},
		{Name: "Statistics", Description: "Statistical knowledge and applications"},
		{Name: "Machine Learning", Description: "Machine learning concepts and applications"},
		{Name: "Communication", Description: "Communication and explanation skills"},
	}
}

// LoadRubric reads the rubric criteria from the given file (yaml/json, a
// top-level "criteria" list). An empty path selects the default rubric.
func LoadRubric(path string) ([]RubricCriterion, error) {
	if path == "" {
		return DefaultRubric(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rubric file %s: %w", path, err)
	}

	var criteria []RubricCriterion
	if err := v.UnmarshalKey("criteria", &criteria); err != nil {
		return nil, fmt.Errorf("parse rubric file %s: %w", path, err)
	}
	if len(criteria) == 0 {
		return nil, fmt.Errorf("rubric file %s defines no criteria", path)
	}
	for i, c := range criteria {
		if c.Name == "" {
			return nil, fmt.Errorf("rubric file %s: criterion %d has no name", path, i)
		}
	}
	return criteria, nil
}

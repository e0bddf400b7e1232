// Package elections provides the general election calendar used to tell
// general elections apart from by-elections.
package elections

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"civitas/internal/timeline/models"
)

// Baseline is the built-in calendar of Commons general elections.
func Baseline() []models.Election {
	return []models.Election{
		{Date: models.MustParseDate("2005-05-05"), Label: "2005 General Election"},
		{Date: models.MustParseDate("2010-05-06"), Label: "2010 General Election"},
		{Date: models.MustParseDate("2015-05-07"), Label: "2015 General Election"},
		{Date: models.MustParseDate("2017-06-08"), Label: "2017 General Election"},
		{Date: models.MustParseDate("2019-12-12"), Label: "2019 General Election"},
		{Date: models.MustParseDate("2024-07-04"), Label: "2024 General Election"},
	}
}

type calendarFile struct {
	Elections []entry `yaml:"elections" validate:"dive"`
}

type entry struct {
	Date  string `yaml:"date" validate:"required,isodate"`
	Label string `yaml:"label" validate:"required"`
}

// LoadFile reads a YAML (or JSON) calendar of the form
//
//	elections:
//	  - date: 2024-07-04
//	    label: 2024 General Election
//
// The result is sorted by date.
func LoadFile(path string) ([]models.Election, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read election calendar: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a calendar document.
func Parse(raw []byte) ([]models.Election, error) {
	var doc calendarFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode election calendar: %w", err)
	}
	if err := models.Validator().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid election calendar: %w", err)
	}
	out := make([]models.Election, 0, len(doc.Elections))
	for _, e := range doc.Elections {
		out = append(out, models.Election{Date: models.MustParseDate(e.Date), Label: e.Label})
	}
	slices.SortStableFunc(out, func(a, b models.Election) int { return a.Date.Compare(b.Date) })
	return out, nil
}

// Since keeps the elections on or after since, preserving order.
func Since(calendar []models.Election, since models.Date) []models.Election {
	out := make([]models.Election, 0, len(calendar))
	for _, e := range calendar {
		if !e.Date.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

package series

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var dateLayouts = []string{"2006-01", "2006-01-02", time.RFC3339}

// ParseDate parses a series date in one of the supported layouts. Month-only
// dates resolve to the first day of the month.
func ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return Day(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unsupported format", raw)
}

type filePoint struct {
	Date   string `yaml:"date"`
	Value  string `yaml:"value"`
	Series string `yaml:"series,omitempty"`
	Region string `yaml:"region,omitempty"`
}

type seriesFile struct {
	Points []filePoint `yaml:"points"`
}

// LoadFile reads a YAML series file into points. Entries without an explicit
// series or region inherit the provided defaults. Non-positive index values
// are a data-quality fault and fail the load.
func LoadFile(path, defaultSeries, defaultRegion string, rules *RuleSet) ([]Point, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series file: %w", err)
	}
	var file seriesFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode series file %s: %w", path, err)
	}
	if len(file.Points) == 0 {
		return nil, fmt.Errorf("series file %s contains no points", path)
	}

	points := make([]Point, 0, len(file.Points))
	for idx, entry := range file.Points {
		date, err := ParseDate(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("series file %s point %d: %w", path, idx, err)
		}
		if entry.Value == "" {
			return nil, fmt.Errorf("series file %s point %d: value is empty", path, idx)
		}
		value, err := decimal.NewFromString(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("series file %s point %d: parse value: %w", path, idx, err)
		}
		if value.Sign() <= 0 {
			return nil, fmt.Errorf("series file %s point %d: index value %s is not positive", path, idx, value)
		}
		point := Point{
			Date:     date,
			Value:    value,
			SeriesID: entry.Series,
			Region:   entry.Region,
		}
		if point.SeriesID == "" {
			point.SeriesID = defaultSeries
		}
		if point.Region == "" {
			point.Region = defaultRegion
		}
		if point.SeriesID == "" {
			return nil, fmt.Errorf("series file %s point %d: series identifier is empty", path, idx)
		}
		if rules != nil {
			if err := rules.Check(point); err != nil {
				return nil, fmt.Errorf("series file %s point %d: %w", path, idx, err)
			}
		}
		points = append(points, point)
	}
	return points, nil
}

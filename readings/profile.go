package readings

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBand       = errors.New("band minimum must be lower than its maximum")
	ErrUnsupportedMetric = errors.New("unsupported metric")
)

type Rounding string

const (
	RoundingInteger    Rounding = "integer"
	RoundingTwoDecimal Rounding = "twoDecimal"
)

func (r Rounding) Places() int32 {
	if r == RoundingTwoDecimal {
		return 2
	}
	return 0
}

// Profile describes how a metric is fetched from the upstream API and how it is displayed
type Profile struct {
	Title      string   `yaml:"title" json:"title"`
	Unit       string   `yaml:"unit" json:"unit"`
	Band       Band     `yaml:"band" json:"band"`
	Rounding   Rounding `yaml:"rounding" json:"rounding"`
	Path       string   `yaml:"path" json:"-"`
	Collection string   `yaml:"collection" json:"-"`
	ValueField string   `yaml:"valueField" json:"-"`
}

func (p Profile) Validate() error {
	if err := p.Band.Validate(); err != nil {
		return err
	}
	if p.Rounding != RoundingInteger && p.Rounding != RoundingTwoDecimal {
		return fmt.Errorf("invalid rounding mode %q", p.Rounding)
	}
	if p.Path == "" || p.Collection == "" || p.ValueField == "" {
		return errors.New("path, collection and value field are required")
	}
	return nil
}

type Profiles map[Metric]Profile

func (p Profiles) Get(metric Metric) (Profile, error) {
	if !IsSupported(metric) {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
	}
	profile, ok := p[metric]
	if !ok {
		return Profile{}, fmt.Errorf("%w: no profile for %s", ErrUnsupportedMetric, metric)
	}
	return profile, nil
}

func (p Profiles) Validate() error {
	for metric, profile := range p {
		if !IsSupported(metric) {
			return fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
		}
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("invalid profile for %s: %w", metric, err)
		}
	}
	return nil
}

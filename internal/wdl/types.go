package wdl

import (
	"fmt"
	"strings"
	"time"
)

// Time wraps time.Time to accept the timezone-naive timestamps the WDL API
// emits (e.g. "2017-06-20T15:09:06"). Naive values are taken as UTC.
// RFC3339 values are accepted as well.
type Time struct {
	time.Time
}

const naiveLayout = "2006-01-02T15:04:05"

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + t.UTC().Format(naiveLayout) + `"`), nil
}

// JobHeader is one entry of the job directory returned by GET /jobheaders.
type JobHeader struct {
	JobID                 string  `json:"jobId"`
	WellID                string  `json:"wellId"`
	WellName              string  `json:"wellName"`
	API                   string  `json:"api"`
	JobStartDate          Time    `json:"jobStartDate"`
	ServiceCompany        string  `json:"serviceCompany"`
	Fleet                 string  `json:"fleet"`
	Operator              string  `json:"operator"`
	AssetGroup            string  `json:"assetGroup"`
	Formation             string  `json:"formation"`
	JobType               string  `json:"jobType"`
	FracSystem            string  `json:"fracSystem"`
	FluidSystem           string  `json:"fluidSystem"`
	BottomholeLatitude    float64 `json:"bottomholeLatitude"`
	BottomholeLongitude   float64 `json:"bottomholeLongitude"`
	SurfaceLatitude       float64 `json:"surfaceLatitude"`
	SurfaceLongitude      float64 `json:"surfaceLongitude"`
	MeasuredDepth         float64 `json:"measuredDepth"`
	MeasuredDepthUnitText string  `json:"measuredDepthUnitText"`
	VerticalDepth         float64 `json:"verticalDepth"`
	VerticalDepthUnitText string  `json:"verticalDepthUnitText"`
	LateralLength         float64 `json:"lateralLength"`
	LateralLengthUnitText string  `json:"lateralLengthUnitText"`
	StageCount            int     `json:"stageCount"`
	PlannedStages         int     `json:"plannedStages"`
	PadName               string  `json:"padName"`
	County                string  `json:"county"`
	State                 string  `json:"state"`
	LegalDescription      string  `json:"legalDescription"`
	ModifiedUTC           Time    `json:"modifiedUtc"`
}

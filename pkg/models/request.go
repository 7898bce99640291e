package models

import (
	"fmt"
	"time"
)

// MediaKind declares how the bill artifact in an AnalysisRequest is encoded.
type MediaKind string

const (
	// MediaText means the bill is already-decoded text in BillText.
	MediaText MediaKind = "text"
	// MediaImage means the bill is raw image bytes in BillRaw, forwarded
	// untouched to the parser capability.
	MediaImage MediaKind = "image"
	// MediaPDF means the bill is raw PDF bytes in BillRaw.
	MediaPDF MediaKind = "pdf"
)

// Valid returns true if the media kind is a known value.
func (m MediaKind) Valid() bool {
	switch m {
	case MediaText, MediaImage, MediaPDF:
		return true
	default:
		return false
	}
}

// MeterReading is one historical consumption sample.
type MeterReading struct {
	// Timestamp is when the reading was taken.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// ConsumptionKWh is the consumption during the sample interval.
	ConsumptionKWh float64 `json:"consumption_kwh" yaml:"consumption_kwh"`
}

// AnalysisRequest is one bill submission. It is immutable once submitted;
// the scheduler copies what it hands to each stage.
type AnalysisRequest struct {
	// BillText is the decoded bill text when Media is MediaText.
	BillText string `json:"bill_text,omitempty"`
	// BillRaw holds raw bill bytes when Media is MediaImage or MediaPDF.
	BillRaw []byte `json:"bill_raw,omitempty"`
	// Media declares how the bill artifact is encoded.
	Media MediaKind `json:"media"`
	// MeterSeries is the optional historical meter series.
	MeterSeries []MeterReading `json:"meter_series,omitempty"`
	// Mode optionally overrides the configured default execution mode.
	Mode ExecutionMode `json:"mode,omitempty"`
}

// HasHistory returns true when a historical meter series is present.
func (r *AnalysisRequest) HasHistory() bool {
	return len(r.MeterSeries) > 0
}

// Validate checks that the request carries a usable bill artifact.
func (r *AnalysisRequest) Validate() error {
	if !r.Media.Valid() {
		return fmt.Errorf("unknown media kind %q", r.Media)
	}
	if r.Media == MediaText && r.BillText == "" {
		return fmt.Errorf("media is text but bill_text is empty")
	}
	if r.Media != MediaText && len(r.BillRaw) == 0 {
		return fmt.Errorf("media is %s but bill_raw is empty", r.Media)
	}
	if r.Mode != "" && !r.Mode.Valid() {
		return fmt.Errorf("unknown execution mode %q", r.Mode)
	}
	return nil
}

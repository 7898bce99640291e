package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wattsonlabs/wattson/pkg/models"
)

func TestAcceptanceThreshold(t *testing.T) {
	if got := AcceptanceThreshold(models.StageParser); got != 0.80 {
		t.Errorf("parser threshold = %v, want 0.80", got)
	}
	for _, s := range []models.Stage{
		models.StageMeterAnalyzer,
		models.StageAnomalyDetector,
		models.StageRecommendation,
	} {
		if got := AcceptanceThreshold(s); got != 0.70 {
			t.Errorf("%s threshold = %v, want 0.70", s, got)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "Here you go:\n```json\n{\"a\":1}\n```\n", `{"a":1}`, false},
		{"prose around", `Sure. {"a":{"b":2}} Done.`, `{"a":{"b":2}}`, false},
		{"no object", "I cannot help with that.", "", true},
		{"closing before opening", "} {", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.73, 0.73},
		{1, 1},
		{1.2, 1},
	}
	for _, tt := range tests {
		if got := clampConfidence(tt.in); got != tt.want {
			t.Errorf("clampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.FailureKind
	}{
		{"rate limited", &anthropic.Error{StatusCode: 429}, models.FailureTransient},
		{"request timeout", &anthropic.Error{StatusCode: 408}, models.FailureTransient},
		{"server error", &anthropic.Error{StatusCode: 503}, models.FailureTransient},
		{"bad request", &anthropic.Error{StatusCode: 400}, models.FailureInvalidInput},
		{"payload too large", &anthropic.Error{StatusCode: 413}, models.FailureInvalidInput},
		{"auth failure", &anthropic.Error{StatusCode: 401}, models.FailureFatal},
		{"deadline", context.DeadlineExceeded, models.FailureTransient},
		{"unknown", errors.New("boom"), models.FailureFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodePayloadParser(t *testing.T) {
	raw := `{
		"utility_type": "electricity",
		"total_consumption": 842.5,
		"consumption_unit": "kWh",
		"total_cost": 156.32,
		"currency": "USD",
		"confidence_score": 0.92
	}`

	payload, confidence, err := decodePayload(models.StageParser, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", confidence)
	}
	bill, ok := payload.(*models.BillData)
	if !ok {
		t.Fatalf("payload is %T, want *models.BillData", payload)
	}
	if bill.UtilityType != "electricity" || bill.TotalConsumption != 842.5 {
		t.Errorf("unexpected bill data: %+v", bill)
	}
}

func TestDecodePayloadMissingConfidence(t *testing.T) {
	// Missing confidence_score decodes as zero, which the caller then
	// treats as below any acceptance threshold.
	_, confidence, err := decodePayload(models.StageParser, `{"utility_type":"gas"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confidence != 0 {
		t.Errorf("confidence = %v, want 0", confidence)
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	if _, _, err := decodePayload(models.StageRecommendation, `{"recommendations": "not a list"}`); err == nil {
		t.Fatal("expected error for mistyped payload")
	}
}

func TestParseResponseLowConfidence(t *testing.T) {
	c := &Client{thresholds: map[models.Stage]float64{models.StageParser: 0.80}}

	res := c.parseResponse(models.StageParser, `{"utility_type":"water","confidence_score":0.65}`)
	if res.OK() {
		t.Fatal("expected low-confidence failure")
	}
	if res.Failure.Kind != models.FailureLowConfidence {
		t.Fatalf("failure kind = %v, want low_confidence", res.Failure.Kind)
	}
	// The payload and score survive so a retry can keep the best attempt.
	if res.Payload == nil || res.Confidence != 0.65 {
		t.Errorf("expected payload with confidence 0.65 retained, got %+v", res)
	}
}

func TestParseResponseAccepted(t *testing.T) {
	c := &Client{thresholds: map[models.Stage]float64{models.StageParser: 0.80}}

	res := c.parseResponse(models.StageParser, `{"utility_type":"electricity","confidence_score":0.91}`)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res.Failure)
	}
	if res.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", res.Confidence)
	}
}

func TestParseResponseNonJSONIsTransient(t *testing.T) {
	c := &Client{thresholds: map[models.Stage]float64{models.StageParser: 0.80}}

	res := c.parseResponse(models.StageParser, "I'm unable to read this bill.")
	if res.OK() || res.Failure.Kind != models.FailureTransient {
		t.Fatalf("expected transient failure, got %+v", res)
	}
}

func TestUserBlocksRejectsPDF(t *testing.T) {
	c := &Client{}

	_, err := c.userBlocks(StageInput{
		Stage:   models.StageParser,
		Media:   models.MediaPDF,
		BillRaw: []byte("%PDF-1.4"),
	})
	if err == nil {
		t.Fatal("expected pdf input to be rejected")
	}
}

func TestUserBlocksRequiresUpstreamData(t *testing.T) {
	c := &Client{}

	if _, err := c.userBlocks(StageInput{Stage: models.StageMeterAnalyzer}); err == nil {
		t.Error("meter analyzer without extraction should be rejected")
	}
	if _, err := c.userBlocks(StageInput{Stage: models.StageRecommendation}); err == nil {
		t.Error("recommendation without merged input should be rejected")
	}
}

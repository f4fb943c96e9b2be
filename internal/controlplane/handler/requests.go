package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"meshgate/internal/evidence"
	dErrors "meshgate/pkg/domain-errors"
)

const (
	maxNodeIDLength       = 128
	maxSuiteVersionLength = 64
	maxNotesLength        = 4096
	maxScores             = 64
)

// SubmitEvidenceRequest is the HTTP request body for POST /v1/benchmarks/{nodeID}.
type SubmitEvidenceRequest struct {
	NodeID       string          `json:"node_id"`
	Timestamp    string          `json:"timestamp"`
	SuiteVersion string          `json:"suite_version"`
	Scores       json.RawMessage `json:"scores"`
	Notes        *string         `json:"notes,omitempty"`
	Signature    *string         `json:"signature,omitempty"`

	// Parsed values (populated by Validate)
	parsedScores map[string]float64
}

// Validate checks structure only. The timestamp is kept verbatim; the
// membership policy decides whether it parses.
func (r *SubmitEvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.NodeID) > maxNodeIDLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("node_id must be at most %d characters", maxNodeIDLength))
	}
	if len(r.SuiteVersion) > maxSuiteVersionLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("suite_version must be at most %d characters", maxSuiteVersionLength))
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}

	// Required fields
	r.NodeID = strings.TrimSpace(r.NodeID)
	if r.NodeID == "" {
		return dErrors.New(dErrors.CodeValidation, "node_id is required")
	}
	if strings.TrimSpace(r.Timestamp) == "" {
		return dErrors.New(dErrors.CodeValidation, "timestamp is required")
	}
	r.SuiteVersion = strings.TrimSpace(r.SuiteVersion)
	if r.SuiteVersion == "" {
		return dErrors.New(dErrors.CodeValidation, "suite_version is required")
	}
	if len(r.Scores) == 0 {
		return dErrors.New(dErrors.CodeValidation, "scores is required")
	}

	scores, err := parseScores(r.Scores)
	if err != nil {
		return err
	}
	r.parsedScores = scores
	return nil
}

// parseScores accepts only a JSON object whose values are all numbers.
func parseScores(raw json.RawMessage) (map[string]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic map[string]any
	if err := dec.Decode(&generic); err != nil || generic == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "scores must be an object mapping metric names to numbers")
	}
	if len(generic) > maxScores {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("scores must contain at most %d metrics", maxScores))
	}

	scores := make(map[string]float64, len(generic))
	for name, v := range generic {
		num, ok := v.(json.Number)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("scores.%s must be a number", name))
		}
		f, err := num.Float64()
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("scores.%s is out of range", name))
		}
		scores[name] = f
	}
	return scores, nil
}

// ToRecord converts the validated request to an evidence record.
func (r *SubmitEvidenceRequest) ToRecord() evidence.Record {
	return evidence.Record{
		NodeID:       r.NodeID,
		ObservedAt:   r.Timestamp,
		SuiteVersion: r.SuiteVersion,
		Scores:       r.parsedScores,
		Notes:        r.Notes,
		Signature:    r.Signature,
	}
}

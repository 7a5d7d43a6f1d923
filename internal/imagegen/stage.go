package imagegen

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StageRequest asks the sampler for one text-to-image run.
type StageRequest struct {
	StageID  string
	Text     string
	Prompt   string
	Negative string
	Model    string
	Width    int
	Height   int
	Steps    int
	Guidance float64
	Seed     int64
}

// StageResult is the sampler's answer. Image holds PNG bytes when Status is
// completed.
type StageResult struct {
	StageID      string
	Status       string
	ErrorMessage string
	Backend      string
	Image        []byte
}

func (r *StageRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"stage_id": r.StageID,
		"text":     r.Text,
		"prompt":   r.Prompt,
		"negative": r.Negative,
		"model":    r.Model,
		"width":    float64(r.Width),
		"height":   float64(r.Height),
		"steps":    float64(r.Steps),
		"guidance": r.Guidance,
		// float64 cannot carry every int64
		"seed": strconv.FormatInt(r.Seed, 10),
	})
}

func stageRequestFromStruct(s *structpb.Struct) (*StageRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("imagegen: empty stage request")
	}
	m := s.AsMap()
	req := &StageRequest{
		StageID:  stringValue(m, "stage_id"),
		Text:     stringValue(m, "text"),
		Prompt:   stringValue(m, "prompt"),
		Negative: stringValue(m, "negative"),
		Model:    stringValue(m, "model"),
		Width:    intValue(m, "width", DefaultSize),
		Height:   intValue(m, "height", DefaultSize),
		Steps:    intValue(m, "steps", 0),
		Guidance: floatValue(m, "guidance", DefaultGuidance),
		Seed:     int64Value(m, "seed", 0),
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("imagegen: stage request has no prompt")
	}
	return req, nil
}

func (r *StageResult) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"stage_id":      r.StageID,
		"status":        r.Status,
		"error_message": r.ErrorMessage,
		"backend":       r.Backend,
		"image_b64":     base64.StdEncoding.EncodeToString(r.Image),
	})
}

func stageResultFromStruct(s *structpb.Struct) (*StageResult, error) {
	m := s.AsMap()
	res := &StageResult{
		StageID:      stringValue(m, "stage_id"),
		Status:       stringValue(m, "status"),
		ErrorMessage: stringValue(m, "error_message"),
		Backend:      stringValue(m, "backend"),
	}
	if encoded := stringValue(m, "image_b64"); encoded != "" {
		img, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("imagegen: decode image: %w", err)
		}
		res.Image = img
	}
	return res, nil
}

func stringValue(values map[string]any, key string) string {
	switch v := values[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func intValue(values map[string]any, key string, fallback int) int {
	switch v := values[key].(type) {
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64Value(values map[string]any, key string, fallback int64) int64 {
	switch v := values[key].(type) {
	case float64:
		return int64(v)
	case string:
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatValue(values map[string]any, key string, fallback float64) float64 {
	switch v := values[key].(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

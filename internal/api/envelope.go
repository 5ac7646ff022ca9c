package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

const maxBodyBytes = 64 << 10

// answersSchema checks the request envelope shared by submit, preview and
// reassess. Per-question rules are the registry's job.
var answersSchema = mustSchema(`{
	"type": "object",
	"required": ["answers"],
	"additionalProperties": false,
	"properties": {
		"answers": {
			"type": "object",
			"additionalProperties": {
				"oneOf": [
					{"type": "string"},
					{"type": "array", "items": {"type": "string"}}
				]
			}
		}
	}
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile request schema: %v", err))
	}
	return s
}

type answersRequest struct {
	Answers scoring.Answers `json:"answers"`
}

// decodeAnswers reads and validates an {"answers": {...}} body. The returned
// message is safe to show to the caller.
func decodeAnswers(r *http.Request) (scoring.Answers, string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, "invalid request body"
	}
	if len(body) > maxBodyBytes {
		return nil, "request body too large"
	}

	result, err := answersSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, "invalid request body"
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, "invalid request body: " + strings.Join(errs, "; ")
	}

	var req answersRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, "invalid request body"
	}
	return req.Answers, ""
}

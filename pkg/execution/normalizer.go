package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/tidwall/gjson"
)

const executionDataField = "executionData"

// Trace is the structured execution data of a run.
type Trace struct {
	Raw  json.RawMessage `json:"-"`
	Data any             `json:"-"`
}

func (t *Trace) MarshalJSON() ([]byte, error) {
	return t.Raw, nil
}

// NodeTrace is one executed node of an agent-flow trace.
type NodeTrace struct {
	NodeID          string         `json:"nodeId"`
	NodeLabel       string         `json:"nodeLabel"`
	Status          string         `json:"status"`
	PreviousNodeIDs []string       `json:"previousNodeIds"`
	Data            map[string]any `json:"data"`
}

// Nodes decodes the trace as a list of executed nodes. It reports false when
// the trace is not a list of node entries.
func (t *Trace) Nodes() ([]NodeTrace, bool) {
	if !gjson.ParseBytes(t.Raw).IsArray() {
		return nil, false
	}

	var nodes []NodeTrace
	if err := sonic.Unmarshal(t.Raw, &nodes); err != nil {
		return nil, false
	}

	return nodes, true
}

// Normalized is the result of normalizing one execution record.
type Normalized struct {
	Trace    *Trace    `json:"executionData"`
	Metadata *Metadata `json:"metadata"`
}

// Normalize splits a JSON execution record into its trace and metadata.
// executionData may be either a JSON string holding the serialized trace or
// the trace itself.
func Normalize(record []byte) (*Normalized, error) {
	if !gjson.ValidBytes(record) {
		return nil, &MalformedTraceError{Reason: "record is not valid JSON"}
	}

	parsed := gjson.ParseBytes(record)
	if !parsed.IsObject() {
		return nil, &MalformedTraceError{Reason: "record is not an object"}
	}

	executionID := parsed.Get("id").String()
	metadata := newMetadata()

	var (
		data      gjson.Result
		found     bool
		duplicate string
	)

	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()

		if name == executionDataField {
			if found {
				duplicate = name

				return false
			}

			data, found = value, true

			return true
		}

		if !metadata.set(name, json.RawMessage(value.Raw)) {
			duplicate = name

			return false
		}

		return true
	})

	if duplicate != "" {
		return nil, &MalformedTraceError{ExecutionID: executionID, Reason: "record repeats field " + duplicate}
	}

	if !found || data.Type == gjson.Null {
		return nil, &MalformedTraceError{ExecutionID: executionID, Reason: "executionData is missing"}
	}

	raw := data.Raw

	if data.Type == gjson.String {
		raw = strings.TrimSpace(data.String())
		if raw == "" {
			return nil, &MalformedTraceError{ExecutionID: executionID, Reason: "executionData is empty"}
		}
	}

	trace, err := decodeTrace(raw)
	if err != nil {
		return nil, &MalformedTraceError{ExecutionID: executionID, Reason: "executionData cannot be parsed", Err: err}
	}

	return &Normalized{Trace: trace, Metadata: metadata}, nil
}

func decodeTrace(raw string) (*Trace, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New("invalid JSON")
	}

	var data any
	if err := sonic.UnmarshalString(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}

	if data == nil {
		return nil, errors.New("trace is null")
	}

	return &Trace{Raw: json.RawMessage(raw), Data: data}, nil
}

// NormalizeExecution normalizes a persisted execution.
func NormalizeExecution(exec *models.Execution) (*Normalized, error) {
	if exec == nil {
		return nil, &MalformedTraceError{Reason: "execution is nil"}
	}

	record, err := sonic.Marshal(exec)
	if err != nil {
		return nil, &MalformedTraceError{ExecutionID: exec.ID, Reason: "record cannot be encoded", Err: err}
	}

	return Normalize(record)
}

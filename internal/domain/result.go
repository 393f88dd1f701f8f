package domain

import (
	"encoding/json"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNetwork ErrorKind = "network-error"
	ErrorKindTimeout ErrorKind = "timeout"
)

type OutcomeError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"value"`
}

func (e *OutcomeError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Detail) }

// Outcome is the result of one execution attempt. A nil Error and a zero
// ResponseCode never occur together once the attempt has resolved.
type Outcome struct {
	Error        *OutcomeError
	ResponseCode int
}

func Responded(code int) Outcome { return Outcome{ResponseCode: code} }

func Failed(kind ErrorKind, detail string) Outcome {
	return Outcome{Error: &OutcomeError{Kind: kind, Detail: detail}}
}

// Decide applies the up/down rule for c.
func (o Outcome) Decide(c *Check) State {
	if o.Error == nil && o.ResponseCode != 0 && c.Accepts(o.ResponseCode) {
		return StateUp
	}
	return StateDown
}

// outcomeJSON keeps the log line format: false stands in for "no error" and
// "no response code".
type outcomeJSON struct {
	Error        any `json:"error"`
	ResponseCode any `json:"responseCode"`
}

type errorJSON struct {
	Error  bool      `json:"error"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"value"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{Error: false, ResponseCode: false}
	if o.Error != nil {
		out.Error = errorJSON{Error: true, Kind: o.Error.Kind, Detail: o.Error.Detail}
	}
	if o.ResponseCode != 0 {
		out.ResponseCode = o.ResponseCode
	}
	return json.Marshal(out)
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var raw struct {
		Error        json.RawMessage `json:"error"`
		ResponseCode json.RawMessage `json:"responseCode"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = Outcome{}
	if len(raw.Error) > 0 && string(raw.Error) != "false" && string(raw.Error) != "null" {
		var e errorJSON
		if err := json.Unmarshal(raw.Error, &e); err != nil {
			return fmt.Errorf("outcome error: %w", err)
		}
		o.Error = &OutcomeError{Kind: e.Kind, Detail: e.Detail}
	}
	if len(raw.ResponseCode) > 0 && string(raw.ResponseCode) != "false" && string(raw.ResponseCode) != "null" {
		if err := json.Unmarshal(raw.ResponseCode, &o.ResponseCode); err != nil {
			return fmt.Errorf("outcome response code: %w", err)
		}
	}
	return nil
}

// LogRecord is one line of a check's outcome log. Check is the record as it
// was before the worker overwrote its state.
type LogRecord struct {
	Check   Check   `json:"check"`
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
	Alert   bool    `json:"alert"`
	Time    int64   `json:"time"`
	Attempt string  `json:"attempt"`
}

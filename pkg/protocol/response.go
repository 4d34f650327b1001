package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RemoteError is the error half of a failed response.
type RemoteError struct {
	Method  string
	Code    string
	Message string
	Detail  string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "remote call failed"
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [code %s]", e.Method, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Method, msg)
}

// Response is a decoded remote reply.
type Response struct {
	Method  Method
	Success bool
	// Total is nil when the reply carried no TOTAL field.
	Total *int
	// Data holds the primary key payload, or the whole body when the method
	// has no primary key or the key is absent.
	Data json.RawMessage
	// Keyed reports whether Data is the primary key payload.
	Keyed bool
	Error *RemoteError
}

// Err returns the remote error for a failed response, nil otherwise.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return &RemoteError{Method: r.Method.String()}
}

// Into unmarshals the payload into v. Missing payloads leave v untouched.
func (r *Response) Into(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" || string(r.Data) == `""` {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", r.Method, err)
	}
	return nil
}

var htmlTitle = regexp.MustCompile(`(?is)<title>\s*(.*?)\s*</title>`)

// Decode parses a reply body for method m.
func Decode(m Method, body []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		msg := "unexpected HTML response"
		if match := htmlTitle.FindSubmatch(trimmed); match != nil {
			msg = string(match[1])
		}
		return &Response{
			Method: m,
			Error:  &RemoteError{Method: m.String(), Message: msg},
		}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", m, err)
	}
	fields := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		fields[strings.ToUpper(k)] = v
	}

	resp := &Response{Method: m, Data: json.RawMessage(trimmed)}
	resp.Success = strings.EqualFold(rawString(fields["STATUS"]), "success")
	if total, ok := rawInt(fields["TOTAL"]); ok {
		resp.Total = &total
	}
	if key := m.PrimaryKey(); key != "" {
		if data, ok := fields[key]; ok {
			resp.Data = data
			resp.Keyed = true
		}
	}
	if !resp.Success {
		resp.Error = &RemoteError{
			Method:  m.String(),
			Code:    rawString(fields["CODE"]),
			Message: rawString(fields["DESCRIPTION"]),
			Detail:  rawString(fields["DETAIL"]),
		}
	}
	return resp, nil
}

func rawString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.Trim(string(v), `"`)
}

func rawInt(v json.RawMessage) (int, bool) {
	s := rawString(v)
	if s == "" || s == "null" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

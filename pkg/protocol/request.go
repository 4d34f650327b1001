package protocol

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Param is a single request argument.
type Param struct {
	Key   string
	Value string
}

// Request is a remote method call with its ordered arguments.
type Request struct {
	Method Method
	Params []Param
}

// NewRequest starts a request for m.
func NewRequest(m Method) *Request {
	return &Request{Method: m}
}

// Set adds a string argument. Empty values are skipped.
func (r *Request) Set(key, value string) *Request {
	if value == "" {
		return r
	}
	r.Params = append(r.Params, Param{Key: key, Value: value})
	return r
}

// SetAlways adds a string argument even when empty.
func (r *Request) SetAlways(key, value string) *Request {
	r.Params = append(r.Params, Param{Key: key, Value: value})
	return r
}

// SetInt adds an integer argument.
func (r *Request) SetInt(key string, v int64) *Request {
	return r.SetAlways(key, strconv.FormatInt(v, 10))
}

// SetBool adds a boolean argument encoded as 1 or 0.
func (r *Request) SetBool(key string, v bool) *Request {
	if v {
		return r.SetAlways(key, "1")
	}
	return r.SetAlways(key, "0")
}

// SetList adds a list argument joined with commas. Empty lists are skipped.
func (r *Request) SetList(key string, values []string) *Request {
	if len(values) == 0 {
		return r
	}
	return r.SetAlways(key, strings.Join(values, ","))
}

// Get returns the value of the first argument named key.
func (r *Request) Get(key string) (string, bool) {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Query returns the URL query identifying the method.
func (r *Request) Query() string {
	v := url.Values{}
	v.Set("method", r.Method.String())
	v.Set("returnformat", "json")
	return "/?" + v.Encode()
}

type cdataValue struct {
	Value string `xml:",cdata"`
}

// EncodeXML renders the arguments as the request body:
// <request><key><![CDATA[value]]></key>...</request>
func (r *Request) EncodeXML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version='1.0' encoding='UTF-8'?>`)
	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: "request"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	for _, p := range r.Params {
		if p.Key == "" {
			return nil, fmt.Errorf("%s: empty argument name", r.Method)
		}
		el := xml.StartElement{Name: xml.Name{Local: p.Key}}
		if err := enc.EncodeElement(cdataValue{Value: p.Value}, el); err != nil {
			return nil, fmt.Errorf("%s: encode %s: %w", r.Method, p.Key, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

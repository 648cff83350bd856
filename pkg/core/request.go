package core

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Request classifications against which rate-limit budget is tracked.
const (
	ClassDefault    = "default"
	ClassMarketData = "market_data"
	ClassOrder      = "order"
	ClassAccount    = "account"
)

// Param is one key-value pair of a request's query or form body.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered key-value sequence. Insertion order is
// preserved so signing schemes that require it are reproducible;
// schemes that sort do so over a copy.
type Params []Param

// Get returns the value for key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key in place, appending when absent.
func (p *Params) Set(key, value string) {
	for i, kv := range *p {
		if kv.Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Sorted returns a lexicographically ordered copy.
func (p Params) Sorted() Params {
	out := make(Params, len(p))
	copy(out, p)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Encode serializes the params as a URL-encoded query string in their
// current order. url.Values always sorts, which breaks insertion-order
// canonicalization.
func (p Params) Encode() string {
	var buf []byte
	for i, kv := range p {
		if i > 0 {
			buf = append(buf, '&')
		}
		buf = append(buf, url.QueryEscape(kv.Key)...)
		buf = append(buf, '=')
		buf = append(buf, url.QueryEscape(kv.Value)...)
	}
	return string(buf)
}

// Request describes one outbound HTTP call before signing. It is
// constructed per call by venue-specific methods and consumed by the
// dispatcher; conditional weights are computed by the caller before
// dispatch, never inside it.
type Request struct {
	Method         string
	Path           string
	Query          Params
	Body           any
	Headers        map[string]string
	Weight         int
	Classification string
	RequireAuth    bool

	// RawQuery, when set by a signing step, is sent verbatim instead
	// of re-encoding Query. The signed byte sequence and the
	// transmitted one must be identical or the venue rejects the
	// signature.
	RawQuery string
}

// NewRequest creates a request with weight 1 in the default
// classification.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:         method,
		Path:           path,
		Headers:        make(map[string]string),
		Weight:         1,
		Classification: ClassDefault,
	}
}

// SetQuery appends a query parameter, formatting the value to a string.
func (r *Request) SetQuery(key string, value any) *Request {
	r.Query.Set(key, formatParam(value))
	return r
}

// SetBody sets the request body, serialized as JSON at dispatch.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetHeader sets a request header.
func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// SetWeight sets the rate-limit cost of this request.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetClassification assigns the rate-limit bucket this request's
// weight is charged against.
func (r *Request) SetClassification(class string) *Request {
	r.Classification = class
	return r
}

// SetRequireAuth marks the request as needing signing and credentials.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

func formatParam(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

package copilot

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedReply marks a chat payload that cannot be turned into a Reply.
var ErrMalformedReply = errors.New("copilot: malformed chat reply")

// ParseReply normalises a /copilot/chat body. The "response" field may be a
// plain string, a JSON-encoded reply object, or an object; anything else is
// ErrMalformedReply.
func ParseReply(raw []byte) (Reply, error) {
	if !gjson.ValidBytes(raw) {
		return Reply{}, fmt.Errorf("%w: invalid json", ErrMalformedReply)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Reply{}, fmt.Errorf("%w: body is not an object", ErrMalformedReply)
	}
	resp := doc.Get("response")
	outerType := doc.Get("type").String()

	r := Reply{Suggestions: parseSuggestions(doc.Get("suggestions"))}
	switch {
	case !resp.Exists() || resp.Type == gjson.Null:
		return Reply{}, fmt.Errorf("%w: missing response", ErrMalformedReply)
	case resp.Type == gjson.String:
		s := resp.String()
		if inner := gjson.Parse(s); gjson.Valid(s) && inner.IsObject() && inner.Get("response").String() != "" {
			r.Text = inner.Get("response").String()
			r.Type = inner.Get("type").String()
			if len(r.Suggestions) == 0 {
				r.Suggestions = parseSuggestions(inner.Get("suggestions"))
			}
		} else {
			r.Text, r.Type = s, outerType
		}
	case resp.IsObject():
		if inner := resp.Get("response"); inner.Type == gjson.String && inner.String() != "" {
			r.Text = inner.String()
			r.Type = resp.Get("type").String()
		} else {
			r.Text, r.Type = resp.Raw, outerType
		}
	case resp.IsArray():
		return Reply{}, fmt.Errorf("%w: response is an array", ErrMalformedReply)
	default:
		// numbers and booleans
		r.Text, r.Type = resp.Raw, outerType
	}
	if r.Text == "" {
		return Reply{}, fmt.Errorf("%w: empty response", ErrMalformedReply)
	}
	if r.Type == "" {
		r.Type = TypeText
	}
	return r, nil
}

func parseSuggestions(v gjson.Result) []Suggestion {
	if !v.IsArray() {
		return nil
	}
	var out []Suggestion
	v.ForEach(func(_, s gjson.Result) bool {
		text, action := s.Get("text").String(), s.Get("action").String()
		if text != "" && action != "" {
			out = append(out, Suggestion{Text: text, Type: s.Get("type").String(), Action: action})
		}
		return true
	})
	return out
}

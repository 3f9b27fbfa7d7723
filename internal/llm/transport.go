package llm

import (
	"net/http"
)

// HeaderTransport adds fixed headers to every outgoing request.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.Headers) == 0 {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return base.RoundTrip(req)
}

// NewHTTPClient returns a client that sends the organization and project
// headers when they are set.
func NewHTTPClient(base *http.Client, organization, project string) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	headers := map[string]string{}
	if organization != "" {
		headers["OpenAI-Organization"] = organization
	}
	if project != "" {
		headers["OpenAI-Project"] = project
	}
	client := *base
	client.Transport = &HeaderTransport{Base: base.Transport, Headers: headers}
	return &client
}

package orange

import "net/http"

// platformTransport stamps the fixed API key and platform identification
// headers on every request before handing it to Base.
type platformTransport struct {
	Base   http.RoundTripper
	header http.Header
}

func (t *platformTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// A RoundTripper must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, vs := range t.header {
		req.Header[k] = vs
	}
	return base.RoundTrip(req)
}

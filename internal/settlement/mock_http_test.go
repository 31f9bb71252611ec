package settlement

import "net/http"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(endpoint string, fn roundTripFunc) *Client {
	return &Client{
		http:     &HTTPClient{inner: &http.Client{Transport: fn}},
		endpoint: endpoint,
		apiKey:   "secret",
	}
}

package entity

// FetchResponse is what a transport hands back for a single GET.
type FetchResponse struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
}

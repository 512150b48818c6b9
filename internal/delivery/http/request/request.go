package request

type SubmitMirrorRequest struct {
	URL          string `json:"url"`
	Depth        int    `json:"depth"`
	ConvertLinks bool   `json:"convert_links"`
}

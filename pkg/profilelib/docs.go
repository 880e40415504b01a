package profilelib

// DocsResponse is served from / and /api.
type DocsResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Platform  string            `json:"platform,omitempty"`
	Endpoints map[string]string `json:"endpoints"`
	Example   string            `json:"example"`
	Features  []string          `json:"features,omitempty"`
	Credits   map[string]string `json:"credits,omitempty"`
}

// DocsFor describes the API for the given platform. A platform set in the
// config file wins over the adapter's default.
func (c Config) DocsFor(platform string) DocsResponse {
	if c.Docs.Platform != "" {
		platform = c.Docs.Platform
	}
	return DocsResponse{
		Name:     c.Docs.Name,
		Version:  c.Docs.Version,
		Platform: platform,
		Endpoints: map[string]string{
			"GET /api/user?username=<username>": "Get profile info",
			"GET /api/user/<username>":          "Get profile info (alternative)",
		},
		Example:  "/api/user?username=zuck",
		Features: c.Docs.Features,
		Credits:  c.Docs.Credits,
	}
}

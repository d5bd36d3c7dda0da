package client

// CreateResponse is returned by CreateLink.
type CreateResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

type nameRequest struct {
	Name string `json:"name,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

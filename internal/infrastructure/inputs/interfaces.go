package inputs

import "net/http"

// MessageInput is the minimal interface implemented by all input types.
type MessageInput interface {
	Start() error
	Stop() error
}

// HTTPEndpointInput is implemented by inputs that expose an HTTP endpoint.
// Inputs with an empty ListenAddr are mounted on the main server under Path;
// the others serve Handler on their own listener once started.
type HTTPEndpointInput interface {
	MessageInput
	Path() string
	ListenAddr() string
	Handler() http.Handler
}

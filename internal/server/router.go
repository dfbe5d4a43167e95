package server

import "net/http"

// CallbackMux routes the loopback listener's GET paths.
//
// Every request, matched or not, passes through the middleware chain. Paths are mounted
// as GET patterns, so [http.ServeMux] answers other methods with 405 and unknown paths with 404.
type CallbackMux struct {
	mux     *http.ServeMux
	handler http.Handler
}

// NewCallbackMux creates a mux wrapped in chain, first middleware outermost.
func NewCallbackMux(chain ...Middleware) *CallbackMux {
	mux := http.NewServeMux()

	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return &CallbackMux{mux: mux, handler: handler}
}

// Mount registers h for GET on each of its routes.
func (m *CallbackMux) Mount(h Handler) {
	for _, route := range h.Routes() {
		m.mux.Handle(http.MethodGet+" "+route, h)
	}
}

func (m *CallbackMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// Package router is a thin layer over http.ServeMux's method patterns
// with middleware groups.
package router

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Router registers routes on a shared ServeMux.
//
// The root router's middleware wraps the whole mux once, so it also sees
// requests that match no route (CORS preflights, 404s). Groups add
// middleware that is applied per route.
type Router struct {
	mux    *http.ServeMux
	global []Middleware
	chain  []Middleware

	once    *sync.Once
	handler *http.Handler
}

// New creates a root Router with global middleware, outermost first.
func New(middleware ...Middleware) *Router {
	var h http.Handler
	return &Router{
		mux:     http.NewServeMux(),
		global:  middleware,
		once:    &sync.Once{},
		handler: &h,
	}
}

// ServeHTTP implements http.Handler. The global chain is built on the
// first request.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.once.Do(func() {
		*r.handler = apply(r.mux, r.global)
	})
	(*r.handler).ServeHTTP(w, req)
}

// Group returns a Router sharing the same mux whose routes also run
// middleware.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:     r.mux,
		global:  r.global,
		chain:   append(slices.Clone(r.chain), middleware...),
		once:    r.once,
		handler: r.handler,
	}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, handler, middleware...)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle registers handler for method and pattern behind the group's
// middleware and then the route's own.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	chain := append(slices.Clone(r.chain), middleware...)
	r.mux.Handle(method+" "+pattern, apply(handler, chain))
}

// Static serves dir under prefix, e.g. uploaded logos for local storage.
// Directory listings are not served.
func (r *Router) Static(prefix, dir string) {
	prefix = strings.TrimSuffix(prefix, "/")
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))

	r.Handle(http.MethodGet, prefix+"/{file...}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		files.ServeHTTP(w, req)
	}))
}

// apply wraps h so that middleware runs in slice order.
func apply(h http.Handler, middleware []Middleware) http.Handler {
	for _, m := range slices.Backward(middleware) {
		h = m(h)
	}
	return h
}

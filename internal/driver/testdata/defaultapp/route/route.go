// Package route declares the handles the generator scans for.
package route

type Route struct {
	Method   string
	Path     string
	Protocol string
	Handler  any
}

func Get(path string, handler any) Route {
	return Route{Method: "GET", Path: path, Handler: handler}
}

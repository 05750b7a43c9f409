// Package rt declares route handles for the fixture application.
package rt

type Route struct {
	Method   string
	Path     string
	Protocol string
	Handler  any
}

func Get(path string, handler any) Route {
	return Route{Method: "GET", Path: path, Handler: handler}
}

func Post(path string, handler any) Route {
	return Route{Method: "POST", Path: path, Handler: handler}
}

func Handle(method, path string, handler any) Route {
	return Route{Method: method, Path: path, Handler: handler}
}

func WS(path string, handler any) Route {
	return Route{Protocol: "ws", Path: path, Handler: handler}
}

func Stream(path string, handler any) Route {
	return Route{Method: "GET", Protocol: "stream", Path: path, Handler: handler}
}

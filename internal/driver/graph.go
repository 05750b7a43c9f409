package driver

import "sort"

// depGraph is the bipartite dependency graph maintained across passes:
// route declaration files on one side, the files declaring types each route
// references on the other. It answers which routes a changed file can affect
// so unrelated changes never trigger a pass.
type depGraph struct {
	// routesByFile maps a source file to the routes declared in it.
	routesByFile map[string]map[string]struct{}
	// filesByRoute maps a route to every file its referenced declarations
	// live in, including its own declaration file.
	filesByRoute map[string]map[string]struct{}
}

func newDepGraph() *depGraph {
	return &depGraph{
		routesByFile: make(map[string]map[string]struct{}),
		filesByRoute: make(map[string]map[string]struct{}),
	}
}

// reset replaces the graph contents. Called at the end of every complete
// pass with that pass's edges.
func (g *depGraph) reset() {
	g.routesByFile = make(map[string]map[string]struct{})
	g.filesByRoute = make(map[string]map[string]struct{})
}

// addRoute records a route declared in file.
func (g *depGraph) addRoute(route, file string) {
	if g.routesByFile[file] == nil {
		g.routesByFile[file] = make(map[string]struct{})
	}
	g.routesByFile[file][route] = struct{}{}
	g.addEdge(route, file)
}

// addEdge records that route depends on a declaration in file.
func (g *depGraph) addEdge(route, file string) {
	if g.filesByRoute[route] == nil {
		g.filesByRoute[route] = make(map[string]struct{})
	}
	g.filesByRoute[route][file] = struct{}{}
}

// affectedRoutes returns the routes touching any of the changed files,
// sorted. A route is affected when the change hits its declaration file or
// any file contributing a referenced type.
func (g *depGraph) affectedRoutes(changed []string) []string {
	hit := make(map[string]struct{})
	for _, file := range changed {
		for route := range g.routesByFile[file] {
			hit[route] = struct{}{}
		}
		for route, files := range g.filesByRoute {
			if _, ok := files[file]; ok {
				hit[route] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(hit))
	for route := range hit {
		out = append(out, route)
	}
	sort.Strings(out)
	return out
}

// touches reports whether any changed file participates in the graph.
func (g *depGraph) touches(changed []string) bool {
	return len(g.affectedRoutes(changed)) > 0
}

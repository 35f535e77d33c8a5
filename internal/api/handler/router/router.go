package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
)

type Route struct {
	Path    string
	Method  string
	Handler http.Handler
	// Middlewares rodam na ordem da lista, depois da cadeia global do servidor.
	Middlewares []func(http.Handler) http.Handler
}

type ConfigRouter func(router *Router)

func WithRoutes(routes ...Route) ConfigRouter {
	return func(router *Router) {
		router.AddRoutes(routes...)
	}
}

type Router struct {
	router *httprouter.Router
	paths  []string
}

// New cria o router com respostas de erro no formato de pkg/apiErrors para rota
// inexistente e método não suportado.
func New(configs ...ConfigRouter) *Router {
	r := &Router{router: httprouter.New()}

	r.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		apiErrors.WriteError(w, apiErrors.ErrRouteNotFound, "Rota não encontrada", map[string]string{"path": req.URL.Path})
	})
	r.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		apiErrors.WriteError(w, apiErrors.ErrMethodNotAllowed, "Método não suportado", map[string]string{"method": req.Method})
	})

	for _, config := range configs {
		config(r)
	}

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func (r *Router) AddRoutes(routes ...Route) {
	for _, route := range routes {
		chain := alice.New()
		for _, m := range route.Middlewares {
			chain = chain.Append(m)
		}

		r.router.Handler(route.Method, route.Path, chain.Then(route.Handler))
		r.paths = append(r.paths, route.Method+" "+route.Path)
	}
}

// Paths lista as rotas registradas, na ordem de registro.
func (r *Router) Paths() []string {
	return r.paths
}

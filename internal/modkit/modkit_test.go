package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"claimguard/internal/modkit/httpkit"
	phttp "claimguard/internal/platform/net/http"
	"claimguard/internal/platform/net/middleware"
	"claimguard/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Runner interface{ Run() string }
type Query interface{ Count() int }

type runner struct{}

func (runner) Run() string { return "run" }

type query struct{}

func (query) Count() int { return 3 }

type analysisPorts struct {
	Runner Runner
	Query  Query
	hidden Query
}

type fake struct {
	name  string
	ports any
}

func (f fake) Name() string                 { return f.name }
func (f fake) MountRoutes(httpkit.Router)   {}
func (f fake) Ports() any                   { return f.ports }

func TestPortsOf(t *testing.T) {
	m := fake{name: "analysis", ports: analysisPorts{Runner: runner{}, Query: query{}}}

	r, ok := PortsOf[Runner](m)
	require.True(t, ok)
	assert.Equal(t, "run", r.Run())

	q, ok := PortsOf[Query](m)
	require.True(t, ok)
	assert.Equal(t, 3, q.Count())

	whole, ok := PortsOf[analysisPorts](m)
	require.True(t, ok)
	assert.NotNil(t, whole.Runner)

	ptr := fake{name: "analysis", ports: &analysisPorts{hidden: query{}}}
	_, ok = PortsOf[Query](ptr)
	assert.False(t, ok, "unexported fields are not ports")

	_, ok = PortsOf[Runner](fake{name: "meta"})
	assert.False(t, ok)
	_, ok = PortsOf[Runner](fake{name: "x", ports: (*analysisPorts)(nil)})
	assert.False(t, ok)
}

func TestMustPortsOf(t *testing.T) {
	assert.Equal(t, 3, MustPortsOf[Query](fake{ports: query{}}).Count())
	assert.PanicsWithValue(t, "modkit: module meta does not expose modkit.Runner", func() {
		MustPortsOf[Runner](fake{name: "meta"})
	})
}

func TestBuild(t *testing.T) {
	tag := func(v string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add("X-Mw", v)
				next.ServeHTTP(w, r)
			})
		}
	}
	extra := []middleware.Middleware{tag("b")}
	b := Build(
		WithName("runs"),
		WithPrefix("/runs"),
		WithMiddlewares(tag("a")),
		WithMiddlewares(extra...),
		WithPrefix("runs/"),
		WithPorts(query{}),
	)
	extra[0] = tag("changed")

	assert.Equal(t, "runs", b.Name)
	assert.Equal(t, "runs/", b.Prefix, "later options win")
	assert.Equal(t, query{}, b.Ports)

	mux := chi.NewRouter()
	b.Mount(phttp.AdaptChi(mux), func(r httpkit.Router) {
		r.Get("/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []string{"a", "b"}, rec.Header().Values("X-Mw"))

	testkit.MustPanic(t, func() { Build().Mount(phttp.AdaptChi(chi.NewRouter()), func(httpkit.Router) {}) })
}

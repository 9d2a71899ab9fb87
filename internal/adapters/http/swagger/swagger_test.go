package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func get(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	return w
}

func TestRegister(t *testing.T) {
	Convey("Given the docs routes on a mux", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("When fetching the OpenAPI document", func() {
			w := get(mux, http.MethodGet, "/openapi.yaml")

			Convey("Then the embedded YAML should be served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
				So(w.Body.Len(), ShouldEqual, len(OpenAPI))
			})

			Convey("And it should describe the run transitions", func() {
				So(w.Body.String(), ShouldContainSubstring, "/api/runs/{id}/{action}")
				So(w.Body.String(), ShouldContainSubstring, "invalid_run_state")
			})
		})

		Convey("When fetching the ReDoc page", func() {
			w := get(mux, http.MethodGet, "/api-docs")

			Convey("Then it should load the document into ReDoc", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, "Stride API Docs")
				So(w.Body.String(), ShouldContainSubstring, "Redoc.init('/openapi.yaml'")
			})
		})

		Convey("When posting to a docs route", func() {
			w := get(mux, http.MethodPost, "/openapi.yaml")

			Convey("Then the method should not be allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a nil mux", t, func() {
		Convey("Then Register should panic", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

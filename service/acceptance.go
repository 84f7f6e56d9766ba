package service

import (
	"net/http"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

type JSON = map[string]interface{}

func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	a.Alternative("Insert records", func(a *biff.A) {
		resp := apiRequest("POST", "/records:insert").
			WithBodyString(strings.Join([]string{
				`{"id":1,"genre":"scifi","title":"Dune"}`,
				`{"id":2,"genre":"scifi","title":"Solaris"}`,
				`{"id":3,"genre":"fantasy","title":"Earthsea"}`,
			}, "\n")).Do()

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertEqualJson(resp.BodyJson(), JSON{"inserted": 3})

		a.Alternative("Count records", func(a *biff.A) {
			resp := apiRequest("GET", "/records:count").Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"total": 3})
		})

		a.Alternative("Retrieve record", func(a *biff.A) {
			resp := apiRequest("GET", "/records/2").Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": 2, "genre": "scifi", "title": "Solaris"})
		})

		a.Alternative("Retrieve missing record", func(a *biff.A) {
			resp := apiRequest("GET", "/records/99").Do()

			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})

		a.Alternative("Overwrite record", func(a *biff.A) {
			resp := apiRequest("POST", "/records:insert").
				WithBodyJson(JSON{"id": 2, "year": 1961}).Do()
			biff.AssertEqualJson(resp.BodyJson(), JSON{"inserted": 0})

			resp = apiRequest("GET", "/records/2").Do()
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": 2, "genre": "scifi", "title": "Solaris", "year": 1961})
		})

		a.Alternative("Fill a page", func(a *biff.A) {
			resp := apiRequest("POST", "/records").
				WithBodyJson(JSON{"genre": "scifi", "loadedIds": []any{}, "initial": 0, "pageLength": 2}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{
				{"id": 1, "genre": "scifi", "title": "Dune"},
				{"id": 2, "genre": "scifi", "title": "Solaris"},
			})
		})

		a.Alternative("Fill the gaps", func(a *biff.A) {
			resp := apiRequest("POST", "/records").
				WithBodyJson(JSON{"genre": "scifi", "loadedIds": []any{1}, "initial": 1, "pageLength": 1}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{
				{"id": 2, "genre": "scifi", "title": "Solaris"},
			})
		})

		a.Alternative("Nothing missing", func(a *biff.A) {
			resp := apiRequest("POST", "/records").
				WithBodyJson(JSON{"genre": "fantasy", "loadedIds": []any{"3"}}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{})
		})

		a.Alternative("Malformed page request", func(a *biff.A) {
			resp := apiRequest("POST", "/records").
				WithBodyJson(JSON{"pageLength": 0}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})
	})

	a.Alternative("Insert malformed records", func(a *biff.A) {
		resp := apiRequest("POST", "/records:insert").
			WithBodyString(`{"id":1`).Do()

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("Insert records without id", func(a *biff.A) {
		resp := apiRequest("POST", "/records:insert").
			WithBodyJson(JSON{"title": "anonymous"}).Do()

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})
}

package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/manifest/internal/adapters/http/api"
	repository "github.com/okian/manifest/internal/adapters/repository"
	service "github.com/okian/manifest/internal/app"
	"github.com/okian/manifest/internal/domain/cabin"
	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/name"
	"github.com/okian/manifest/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies parses with the real domain code and stores in a map.
type mockDependencies struct {
	passengers map[int]model.Passenger
	ingested   []model.RawPassenger
	dropAfter  int // rows beyond this count are dropped; 0 means never
	notStarted bool
	rejections []types.Rejection
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{passengers: make(map[int]model.Passenger)}
}

func (m *mockDependencies) ParseName(_ context.Context, raw string) (name.Components, error) {
	return name.Parse(raw)
}

func (m *mockDependencies) ParseCabin(_ context.Context, raw *string) (cabin.Descriptor, error) {
	return cabin.ParseOptional(raw)
}

func (m *mockDependencies) Ingest(_ context.Context, rows []model.RawPassenger) types.IngestReport {
	report := types.IngestReport{BatchID: "batch-1", Received: len(rows)}
	for i, row := range rows {
		if m.dropAfter > 0 && i >= m.dropAfter {
			report.Dropped++
			continue
		}
		m.ingested = append(m.ingested, row)
		report.Accepted++
	}
	return report
}

func (m *mockDependencies) Passenger(_ context.Context, id int) (model.Passenger, error) {
	if m.notStarted {
		return model.Passenger{}, service.ErrNotStarted
	}
	p, ok := m.passengers[id]
	if !ok {
		return model.Passenger{}, fmt.Errorf("passenger %d: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

func (m *mockDependencies) Passengers(_ context.Context, offset, limit int) ([]model.Passenger, error) {
	if m.notStarted {
		return nil, service.ErrNotStarted
	}
	var out []model.Passenger
	for id := 1; id <= len(m.passengers) && len(out) < limit; id++ {
		if id <= offset {
			continue
		}
		out = append(out, m.passengers[id])
	}
	return out, nil
}

func (m *mockDependencies) Rejections(_ context.Context) []types.Rejection {
	return m.rejections
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then health serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are 404 and wrong methods 405", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/normalize/name", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(mux, http.MethodDelete, "/passengers", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestNormalizeHandler(t *testing.T) {
	Convey("Given the normalize endpoints", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When a well-formed name is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/name", `{"name":"Futrelle, Mrs. Jacques Heath (Lily May Peel)"}`)

			Convey("Then the components are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["last_name"], ShouldEqual, "Futrelle")
				So(body["salutation"], ShouldEqual, "Mrs")
				So(body["title"], ShouldEqual, "Mrs")
				So(body["spouse_name"], ShouldEqual, "Jacques Heath")
				So(body["maiden_name"], ShouldEqual, "Peel")
				So(body["first_name"], ShouldEqual, "Lily May")
			})
		})

		Convey("When a name without a comma is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/name", `{"name":"Allen Mr William Henry"}`)

			Convey("Then it is unprocessable with the malformed code", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, model.KindMalformedName)
			})
		})

		Convey("When a name with an unknown salutation is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/name", `{"name":"Smith, Herr. John"}`)

			Convey("Then it is unprocessable with the salutation code", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, model.KindUnknownSalutation)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/normalize/name", `not json`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When a cabin is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/cabin", `{"cabin":"C23 C25 C27"}`)

			Convey("Then the descriptor is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["decks"], ShouldEqual, "C")
				So(body["rooms"], ShouldResemble, []any{23.0, 25.0, 27.0})
			})
		})

		Convey("When a null cabin is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/cabin", `{"cabin":null}`)

			Convey("Then the empty descriptor is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"decks":null,"rooms":[]}`)
			})
		})

		Convey("When a malformed cabin is posted", func() {
			w := do(mux, http.MethodPost, "/normalize/cabin", `{"cabin":"C45 DX1"}`)

			Convey("Then it is unprocessable with the token code", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, model.KindMalformedCabinToken)
			})
		})
	})
}

func TestPassengersHandler_Post(t *testing.T) {
	Convey("Given the ingestion endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a single row is posted", func() {
			w := do(mux, http.MethodPost, "/passengers", `{"passenger_id":1,"name":"Braund, Mr. Owen Harris","age":22}`)

			Convey("Then it is accepted and Survived is unknown", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["batch_id"], ShouldEqual, "batch-1")
				So(body["accepted"], ShouldEqual, 1.0)
				So(deps.ingested, ShouldHaveLength, 1)
				So(deps.ingested[0].Survived, ShouldEqual, model.SurvivedUnknown)
				So(*deps.ingested[0].Age, ShouldEqual, 22.0)
			})
		})

		Convey("When an array of rows is posted", func() {
			w := do(mux, http.MethodPost, "/passengers", `[
				{"passenger_id":1,"survived":0,"name":"Braund, Mr. Owen Harris"},
				{"passenger_id":2,"survived":1,"name":"Cumings, Mrs. John Bradley (Florence Briggs Thayer)","cabin":"C85"}
			]`)

			Convey("Then every row is ingested", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["received"], ShouldEqual, 2.0)
				So(deps.ingested, ShouldHaveLength, 2)
				So(deps.ingested[0].Survived, ShouldEqual, 0)
				So(deps.ingested[1].Cabin, ShouldEqual, "C85")
			})
		})

		Convey("When the queue cannot take every row", func() {
			deps.dropAfter = 1
			w := do(mux, http.MethodPost, "/passengers", `[{"passenger_id":1},{"passenger_id":2}]`)

			Convey("Then the client is told to back off", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				body := decode(w)
				So(body["status"], ShouldEqual, "backpressure")
				So(body["dropped"], ShouldEqual, 1.0)
				So(body["message"], ShouldEqual, "api.post_passengers: backpressure: 1 of 2 rows dropped")
			})
		})

		Convey("When a row has no passenger id", func() {
			w := do(mux, http.MethodPost, "/passengers", `[{"passenger_id":1},{"name":"x"}]`)

			Convey("Then the whole batch is refused", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["message"], ShouldContainSubstring, "row 1: missing passenger_id")
				So(deps.ingested, ShouldBeEmpty)
			})
		})

		Convey("When the body is empty or invalid", func() {
			So(do(mux, http.MethodPost, "/passengers", "   ").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/passengers", `{"passenger_id":"one"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPassengersHandler_Read(t *testing.T) {
	Convey("Given stored passengers", t, func() {
		deps := newMockDependencies()
		for id := 1; id <= 5; id++ {
			deps.passengers[id] = model.Passenger{
				RawPassenger: model.RawPassenger{PassengerID: id},
				LastName:     fmt.Sprintf("P%d", id),
				Title:        name.TitleMr,
			}
		}
		deps.rejections = []types.Rejection{{PassengerID: 9, Kind: model.KindMalformedName, Error: "no comma"}}
		mux := newMux(deps, api.WithMaxPageLimit(3))

		Convey("When a page is requested", func() {
			w := do(mux, http.MethodGet, "/passengers?offset=1&limit=2", "")

			Convey("Then the page is returned with its bounds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["offset"], ShouldEqual, 1.0)
				So(body["limit"], ShouldEqual, 2.0)
				list := body["passengers"].([]any)
				So(list, ShouldHaveLength, 2)
				So(list[0].(map[string]any)["passenger_id"], ShouldEqual, 2.0)
			})
		})

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/passengers", "")

			Convey("Then the default is capped by the maximum", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["limit"], ShouldEqual, 3.0)
			})
		})

		Convey("When paging parameters are invalid", func() {
			So(do(mux, http.MethodGet, "/passengers?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/passengers?offset=-1", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/passengers?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			w := do(mux, http.MethodGet, "/passengers?limit=4", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When one passenger is requested", func() {
			w := do(mux, http.MethodGet, "/passengers/3", "")

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["last_name"], ShouldEqual, "P3")
			})
		})

		Convey("When an unknown or invalid id is requested", func() {
			So(do(mux, http.MethodGet, "/passengers/42", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/passengers/abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service is not running", func() {
			deps.notStarted = true

			Convey("Then reads are unavailable", func() {
				So(do(mux, http.MethodGet, "/passengers/1", "").Code, ShouldEqual, http.StatusServiceUnavailable)
				So(do(mux, http.MethodGet, "/passengers", "").Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When rejections are requested", func() {
			w := do(mux, http.MethodGet, "/rejections", "")

			Convey("Then they are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.Rejection
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, deps.rejections)
			})
		})
	})
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/manifest/internal/app"
	"github.com/okian/manifest/internal/config"
	"github.com/okian/manifest/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const sampleCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
5,0,3,"Allen Mr William Henry",male,35,0,0,373450,8.05,,S
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.Addr = "127.0.0.1:0"
	cfg.WorkerCount = 2
	cfg.QueueSize = 2
	cfg.MaxPageLimit = 10
	return cfg
}

func TestIngestFiles(t *testing.T) {
	convey.Convey("Given a started service and a manifest file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := testConfig()
		svc := newService(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		convey.Convey("When the file is ingested through a small queue", func() {
			report, err := ingestFiles(ctx, svc, []string{writeSample(t)})

			convey.Convey("Then every row is queued and normalized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(report.Accepted, convey.ShouldEqual, 3)

				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) && len(svc.Rejections(ctx)) == 0 {
					time.Sleep(10 * time.Millisecond)
				}
				rejections := svc.Rejections(ctx)
				convey.So(rejections, convey.ShouldHaveLength, 1)
				convey.So(rejections[0].PassengerID, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When a file is missing", func() {
			_, err := ingestFiles(ctx, svc, []string{filepath.Join(t.TempDir(), "nope.csv")})

			convey.Convey("Then the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load input files")
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the process handler", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		svc := app.New(app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)
		handler := newHandler(ctx, svc, cfg)

		convey.Convey("When normalizing a name over HTTP", func() {
			req := httptest.NewRequest(http.MethodPost, "/normalize/name", strings.NewReader(`{"name":"Heikkinen, Miss. Laina"}`))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			convey.Convey("Then the components are returned", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var body map[string]any
				convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body["title"], convey.ShouldEqual, "Miss")
				convey.So(body["first_name"], convey.ShouldEqual, "Laina")
			})
		})

		convey.Convey("When the page limit exceeds the configured cap", func() {
			req := httptest.NewRequest(http.MethodGet, "/passengers?limit=11", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			convey.Convey("Then it is refused", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})

		convey.Convey("When metrics are scraped", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			convey.Convey("Then the normalizer namespace is exposed", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "manifest_normalizer_")
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config with an input file", t, func() {
		cfg := testConfig()
		cfg.InputFiles = []string{writeSample(t)}

		convey.Convey("When run until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg)

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			err := run(context.Background(), cfg)

			convey.Convey("Then it fails before starting", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

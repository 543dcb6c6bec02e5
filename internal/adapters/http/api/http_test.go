package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/koderAP/trust-gambit-sub000/internal/app"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/types"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// testServer spins up the full HTTP surface over a real in-memory service.
func testServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()

	svc := service.New(
		service.WithPollInterval(time.Hour),
		service.WithMinRoundDuration(time.Second),
	)
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	NewServer(svc, svc, svc.Hub()).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	fields := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

func fieldString(t *testing.T, fields map[string]json.RawMessage, key string) string {
	t.Helper()
	var s string
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func createRound(t *testing.T, base string, participants []string) string {
	t.Helper()
	resp, fields := doJSON(t, http.MethodPost, base+"/rounds", types.RoundSpec{
		GameID:          "game-1",
		RoundNumber:     1,
		Question:        "capital of France?",
		CorrectAnswer:   "PARIS",
		DurationSeconds: 60,
		Participants:    participants,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create round: status %d", resp.StatusCode)
	}
	return fieldString(t, fields, "id")
}

func TestRoundLifecycleOverHTTP(t *testing.T) {
	Convey("Given the HTTP API over a live service", t, func() {
		srv, _ := testServer(t)
		base := srv.URL

		Convey("When a full round runs through the API", func() {
			id := createRound(t, base, []string{"alice", "bob", "carol"})

			resp, fields := doJSON(t, http.MethodGet, base+"/rounds/"+id, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(fieldString(t, fields, "status"), ShouldEqual, "PENDING")
			So(fields["start_time"], ShouldBeNil)

			resp, fields = doJSON(t, http.MethodPost, base+"/rounds/"+id+"/start", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(fieldString(t, fields, "status"), ShouldEqual, "ACTIVE")
			So(fields["expires_at"], ShouldNotBeNil)

			resp, _ = doJSON(t, http.MethodPost, base+"/rounds/"+id+"/submissions", map[string]string{
				"participant_id": "alice", "action": "SOLVE", "answer": "paris",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			resp, _ = doJSON(t, http.MethodPost, base+"/rounds/"+id+"/submissions", map[string]string{
				"participant_id": "bob", "action": "DELEGATE", "target_id": "alice",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			resp, fields = doJSON(t, http.MethodPost, base+"/rounds/"+id+"/end", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(fields["completed"]), ShouldEqual, "true")
			So(fieldString(t, fields, "status"), ShouldEqual, "COMPLETED")

			Convey("Then the scoreboard covers the whole roster", func() {
				resp, err := http.Get(base + "/rounds/" + id + "/scores")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var board types.Scoreboard
				So(json.NewDecoder(resp.Body).Decode(&board), ShouldBeNil)
				So(board.RoundID, ShouldEqual, id)
				So(board.ScoringPending, ShouldBeFalse)
				So(len(board.Scores), ShouldEqual, 3)
			})

			Convey("And ending again reports completed false", func() {
				resp, fields := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/end", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(fields["completed"]), ShouldEqual, "false")
			})
		})

		Convey("When participants are added after creation", func() {
			id := createRound(t, base, []string{"alice"})

			resp, fields := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/participants",
				map[string][]string{"participants": {"bob", "carol"}})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(fields["added"]), ShouldEqual, "2")

			Convey("And an empty roster payload is rejected", func() {
				resp, _ := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/participants",
					map[string][]string{"participants": {}})
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSubmissionErrorCodes(t *testing.T) {
	Convey("Given an active round", t, func() {
		srv, _ := testServer(t)
		base := srv.URL

		id := createRound(t, base, []string{"alice", "bob"})
		resp, _ := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/start", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		submit := func(body map[string]string) (*http.Response, map[string]json.RawMessage) {
			return doJSON(t, http.MethodPost, base+"/rounds/"+id+"/submissions", body)
		}

		Convey("When a participant submits twice", func() {
			resp, _ := submit(map[string]string{"participant_id": "alice", "action": "PASS"})
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			resp, fields := submit(map[string]string{"participant_id": "alice", "action": "PASS"})
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(fieldString(t, fields, "code"), ShouldEqual, "DUPLICATE")
		})

		Convey("When an outsider submits", func() {
			resp, fields := submit(map[string]string{"participant_id": "mallory", "action": "PASS"})
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			So(fieldString(t, fields, "code"), ShouldEqual, "UNKNOWN_PARTICIPANT")
		})

		Convey("When a delegate names an off-roster target", func() {
			resp, fields := submit(map[string]string{
				"participant_id": "bob", "action": "DELEGATE", "target_id": "ghost",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			So(fieldString(t, fields, "code"), ShouldEqual, "INVALID_TARGET")
		})

		Convey("When a solve omits the answer", func() {
			resp, fields := submit(map[string]string{"participant_id": "bob", "action": "SOLVE"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(fieldString(t, fields, "code"), ShouldEqual, "bad_request")
		})

		Convey("When a pass carries a stray target", func() {
			resp, fields := submit(map[string]string{
				"participant_id": "bob", "action": "PASS", "target_id": "alice",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(fieldString(t, fields, "code"), ShouldEqual, "bad_request")
		})

		Convey("When the round has ended", func() {
			resp, _ := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/end", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, fields := submit(map[string]string{"participant_id": "bob", "action": "PASS"})
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(fieldString(t, fields, "code"), ShouldEqual, "ROUND_NOT_ACTIVE")
		})
	})
}

func TestRoundErrorCodes(t *testing.T) {
	Convey("Given the HTTP API", t, func() {
		srv, _ := testServer(t)
		base := srv.URL

		Convey("When an unknown round is fetched", func() {
			resp, fields := doJSON(t, http.MethodGet, base+"/rounds/ghost", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			So(fieldString(t, fields, "code"), ShouldEqual, "not_found")
		})

		Convey("When a round is created without an answer", func() {
			resp, _ := doJSON(t, http.MethodPost, base+"/rounds", types.RoundSpec{
				Question:        "q",
				DurationSeconds: 60,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the creation payload is not JSON", func() {
			resp, err := http.Post(base+"/rounds", "application/json", bytes.NewBufferString("not json"))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an active round is started again", func() {
			id := createRound(t, base, []string{"alice"})
			resp, _ := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/start", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, fields := doJSON(t, http.MethodPost, base+"/rounds/"+id+"/start", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(fieldString(t, fields, "code"), ShouldEqual, "round_not_pending")
		})

		Convey("When the method does not match the route", func() {
			resp, _ := doJSON(t, http.MethodDelete, base+"/rounds", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)

			id := createRound(t, base, []string{"alice"})
			resp, _ = doJSON(t, http.MethodGet, base+"/rounds/"+id+"/end", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When the round path is malformed", func() {
			resp, _ := doJSON(t, http.MethodGet, base+"/rounds/a/b/c", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown subresource is requested", func() {
			id := createRound(t, base, []string{"alice"})
			resp, _ := doJSON(t, http.MethodGet, base+"/rounds/"+id+"/leaderboard", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the HTTP API", t, func() {
		srv, _ := testServer(t)
		base := srv.URL

		Convey("When health is probed", func() {
			resp, fields := doJSON(t, http.MethodGet, base+"/healthz", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(fieldString(t, fields, "status"), ShouldEqual, "ok")
		})

		Convey("When stats are fetched", func() {
			resp, fields := doJSON(t, http.MethodGet, base+"/stats", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(fields["started"]), ShouldEqual, "true")
		})

		Convey("When metrics are scraped", func() {
			resp, err := http.Get(base + "/metrics")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestSplitRoundPath(t *testing.T) {
	Convey("Given round path parsing", t, func() {
		cases := []struct {
			path string
			id   string
			sub  string
			ok   bool
		}{
			{"/rounds/r1", "r1", "", true},
			{"/rounds/r1/", "r1", "", true},
			{"/rounds/r1/scores", "r1", "scores", true},
			{"/rounds/", "", "", false},
			{"/rounds/r1/a/b", "", "", false},
		}
		for _, tc := range cases {
			id, sub, ok := splitRoundPath(tc.path)
			So(ok, ShouldEqual, tc.ok)
			So(id, ShouldEqual, tc.id)
			So(sub, ShouldEqual, tc.sub)
		}
	})
}

package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"meshgate/internal/controlplane"
	"meshgate/internal/controlplane/handler/mocks"
	"meshgate/internal/evidence"
	"meshgate/internal/membership"
	"meshgate/internal/platform/logger"
	dErrors "meshgate/pkg/domain-errors"
	"meshgate/pkg/requestcontext"
	"meshgate/pkg/testutil"
)

// =============================================================================
// Control Plane Handler Test Suite
// =============================================================================
// Justification: the handler owns the wire contract. Tests verify request
// validation, error translation and that keys appear only for allowed nodes.

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.mockService, logger.Discard()).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validSubmission(nodeID string) map[string]any {
	return map[string]any{
		"node_id":       nodeID,
		"timestamp":     "2026-01-05T12:34:56Z",
		"suite_version": "poc-0.1",
		"scores":        map[string]any{"overall": 0.92, "refusal": 0.88},
	}
}

func (s *HandlerSuite) TestSubmitEvidence() {
	receivedAt := time.Date(2026, 1, 5, 12, 35, 0, 0, time.UTC)

	s.Run("accepted submission returns the current epoch", func() {
		s.mockService.EXPECT().SubmitEvidence(gomock.Any(), "node-a", gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ string, rec evidence.Record) (*controlplane.SubmitResult, error) {
				s.Equal("2026-01-05T12:34:56Z", rec.ObservedAt)
				s.InDelta(0.92, rec.Scores["overall"], 1e-9)
				s.Equal("req-42", requestcontext.RequestID(ctx))
				s.Equal(receivedAt, requestcontext.Now(ctx))
				return &controlplane.SubmitResult{NodeID: "node-a", EpochID: 4}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/benchmarks/node-a", validSubmission("node-a"))
		req = testutil.WithRequestTime(testutil.WithRequestID(req, "req-42"), receivedAt)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "received")
		testutil.AssertJSONContains(s.T(), rr, "epoch_id", float64(4))
	})

	s.Run("service validation errors map to 400", func() {
		s.mockService.EXPECT().SubmitEvidence(gomock.Any(), "node-a", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "node_id mismatch"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/benchmarks/node-a", validSubmission("node-b")))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		s.Equal("node_id mismatch", testutil.UnmarshalErrorResponse(s.T(), rr)["error_description"])
	})

	s.Run("non-roster node maps to 404", func() {
		s.mockService.EXPECT().SubmitEvidence(gomock.Any(), "node-x", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "node \"node-x\" is not in the roster"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/benchmarks/node-x", validSubmission("node-x")))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	invalid := []struct {
		name string
		body string
	}{
		{"malformed json", `{"node_id":`},
		{"missing node id", `{"timestamp":"t","suite_version":"v","scores":{"overall":1}}`},
		{"missing timestamp", `{"node_id":"node-a","suite_version":"v","scores":{"overall":1}}`},
		{"missing suite version", `{"node_id":"node-a","timestamp":"t","scores":{"overall":1}}`},
		{"missing scores", `{"node_id":"node-a","timestamp":"t","suite_version":"v"}`},
		{"null scores", `{"node_id":"node-a","timestamp":"t","suite_version":"v","scores":null}`},
		{"scores is a list", `{"node_id":"node-a","timestamp":"t","suite_version":"v","scores":[0.9]}`},
		{"string score", `{"node_id":"node-a","timestamp":"t","suite_version":"v","scores":{"overall":"high"}}`},
		{"boolean score", `{"node_id":"node-a","timestamp":"t","suite_version":"v","scores":{"overall":true}}`},
		{"overflowing score", `{"node_id":"node-a","timestamp":"t","suite_version":"v","scores":{"overall":1e400}}`},
	}
	for _, tc := range invalid {
		s.Run(tc.name+" is rejected before the service", func() {
			rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/benchmarks/node-a", tc.body))
			testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		})
	}

	s.Run("out of range numbers are accepted", func() {
		s.mockService.EXPECT().SubmitEvidence(gomock.Any(), "node-a", gomock.Any()).
			Return(&controlplane.SubmitResult{NodeID: "node-a", EpochID: 1}, nil)

		body := validSubmission("node-a")
		body["scores"] = map[string]any{"overall": 7.5, "bias": -2}
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/benchmarks/node-a", body))
		testutil.AssertStatusOK(s.T(), rr)
	})
}

func (s *HandlerSuite) TestEpoch() {
	s.Run("uninitialized epoch", func() {
		s.mockService.EXPECT().EpochState(gomock.Any()).Return(controlplane.EpochState{
			Nodes: []controlplane.NodeMembership{{NodeID: "node-a", Status: membership.StatusUnknown, Reason: membership.ReasonNotEvaluated}},
		})

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/epoch"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "initialized", false)
		testutil.AssertJSONLacksKey(s.T(), rr, "expiry_utc")
		nodes := testutil.DecodeJSONMap(s.T(), rr)["nodes"].(map[string]any)
		s.Equal("UNKNOWN", nodes["node-a"].(map[string]any)["membership"])
	})

	s.Run("initialized epoch never exposes a secret", func() {
		s.mockService.EXPECT().EpochState(gomock.Any()).Return(controlplane.EpochState{
			Initialized:       true,
			EpochID:           2,
			Expiry:            time.Date(2026, 1, 5, 12, 1, 0, 0, time.UTC),
			SecretFingerprint: "sha256:0123456789abcdef",
			Nodes: []controlplane.NodeMembership{
				{NodeID: "node-a", Status: membership.StatusAllowed, Reason: membership.ReasonOK},
				{NodeID: "node-b", Status: membership.StatusDenied, Reason: membership.ReasonLowScore},
			},
		})

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/epoch"))

		body := testutil.DecodeJSONMap(s.T(), rr)
		s.Equal("sha256:0123456789abcdef", body["secret_hash"])
		s.Equal("2026-01-05T12:01:00Z", body["expiry_utc"])
		s.Len(body["nodes"], 2)
		testutil.AssertJSONLacksKey(s.T(), rr, "secret")
	})
}

func (s *HandlerSuite) TestNodeConfig() {
	s.Run("allowed node receives the encoded key", func() {
		psk := make([]byte, 32)
		s.mockService.EXPECT().NodeConfig(gomock.Any(), "node-a").Return(&controlplane.NodeConfig{
			NodeID: "node-a", EpochID: 3, Allowed: true,
			Status: membership.StatusAllowed, Reason: membership.ReasonOK, PSK: psk,
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/config/node-a"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "allowed", true)
		testutil.AssertJSONContains(s.T(), rr, "psk_base64", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	})

	s.Run("denied node response has no key field at all", func() {
		s.mockService.EXPECT().NodeConfig(gomock.Any(), "node-b").Return(&controlplane.NodeConfig{
			NodeID: "node-b", EpochID: 3,
			Status: membership.StatusDenied, Reason: membership.ReasonLowScore,
			Detail: "score 0.40 < threshold 0.70",
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/config/node-b"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "allowed", false)
		testutil.AssertJSONContains(s.T(), rr, "reason", "LOW_SCORE")
		testutil.AssertJSONLacksKey(s.T(), rr, "psk_base64")
	})

	s.Run("unknown node is 404", func() {
		s.mockService.EXPECT().NodeConfig(gomock.Any(), "node-x").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "node \"node-x\" is not in the roster"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/config/node-x"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("internal errors hide their description", func() {
		s.mockService.EXPECT().NodeConfig(gomock.Any(), "node-a").
			Return(nil, dErrors.New(dErrors.CodeInternal, "derivation exploded"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/config/node-a"))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		testutil.AssertJSONLacksKey(s.T(), rr, "error_description")
	})
}

func (s *HandlerSuite) TestHealth() {
	s.mockService.EXPECT().Health(gomock.Any()).Return(controlplane.Health{Status: "ok", EpochID: 9, Initialized: true})

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")
	testutil.AssertJSONContains(s.T(), rr, "epoch_id", float64(9))
}

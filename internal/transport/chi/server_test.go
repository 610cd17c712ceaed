package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	"github.com/kailas-cloud/dietwatch/internal/domain/prompt"
	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
	"github.com/kailas-cloud/dietwatch/internal/domain/stance"
	digestuc "github.com/kailas-cloud/dietwatch/internal/usecase/digest"
	healthuc "github.com/kailas-cloud/dietwatch/internal/usecase/health"
)

// --- Fakes ---

type fakeRoster struct {
	ix  *roster.Index
	err error
}

func (f *fakeRoster) Load(_ context.Context) (*roster.Index, error) { return f.ix, f.err }

type fakeDigests struct {
	digest *digestuc.Digest
	err    error
	got    digestuc.Request
	calls  int
}

func (f *fakeDigests) Run(_ context.Context, req digestuc.Request) (*digestuc.Digest, error) {
	f.calls++
	f.got = req
	return f.digest, f.err
}

type fakeHealth struct{ report healthuc.Report }

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

// --- Helpers ---

func testRoster() *roster.Index {
	return roster.New([]legislator.Legislator{
		legislator.New("山田　太郎", "やまだ　たろう", "自由民主党", "衆議院", "幹事長"),
		legislator.New("鈴木一郎", "すずきいちろう", "自由民主党", "衆議院", ""),
		legislator.New("佐藤花子", "さとうはなこ", "立憲民主党", "参議院", ""),
	}, roster.WithPriorityParties([]string{"立憲民主党"}))
}

func sampleDigest() *digestuc.Digest {
	score := stance.New(0.8)
	return &digestuc.Digest{
		RunID:       "run-1",
		SubjectKind: prompt.SubjectLegislator,
		Subject:     "山田太郎",
		Speakers:    []string{"山田太郎"},
		Keywords:    []string{"防衛"},
		Headline:    "防衛力強化を主張",
		Summary:     "山田太郎は防衛費増額に賛成している。",
		Stance:      &score,
		Model:       "gpt-4o-mini",
		Excerpts: []digestuc.Excerpt{{
			SpeechID:    "s1",
			Speaker:     "山田太郎",
			Party:       "自由民主党",
			Date:        "2024-01-10",
			Meeting:     "第213回国会 衆議院 本会議 第1号",
			Speech:      "防衛力を強化します。",
			Highlighted: "<mark>防衛</mark>力を強化します。",
			Hits:        1,
		}},
		Diagnostics: []digestuc.Diagnostic{{
			Speaker: "山田太郎", Keyword: "教育", StatusCode: 500, Message: "boom",
		}},
	}
}

type testEnv struct {
	roster  *fakeRoster
	digests *fakeDigests
	health  *fakeHealth
	router  http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		roster:  &fakeRoster{ix: testRoster()},
		digests: &fakeDigests{digest: sampleDigest()},
		health: &fakeHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentRoster: healthuc.CheckOK},
		}},
	}
	r := gochi.NewRouter()
	NewServer(env.roster, env.digests, env.health, nil).Mount(r)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

// --- Roster endpoints ---

func TestListParties(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, http.MethodGet, "/api/v1/parties", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	got := decode[PartyList](t, rr)
	require.Equal(t, []string{"立憲民主党", "自由民主党"}, got.Items)
}

func TestListParties_RosterUnavailable(t *testing.T) {
	env := newTestEnv()
	env.roster.err = fmt.Errorf("load: %w", domain.ErrDataSource)

	rr := env.do(t, http.MethodGet, "/api/v1/parties", "")

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	got := decode[ErrorResponse](t, rr)
	require.Equal(t, ErrorCodeDataSourceUnavailable, got.Code)
	require.Equal(t, domain.ErrDataSource.Error(), got.Message)
}

func TestListLegislators(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"さとうはなこ", "すずきいちろう", "やまだたろう"}},
		{name: "by party", query: "?party=" + url.QueryEscape("自由民主党"), want: []string{"すずきいちろう", "やまだたろう"}},
		{name: "unset party sentinel", query: "?party=" + url.QueryEscape(legislator.Unspecified), want: []string{
			"さとうはなこ", "すずきいちろう", "やまだたろう",
		}},
		{name: "by reading", query: "?q=" + url.QueryEscape("やまだ"), want: []string{"やまだたろう"}},
		{name: "no match", query: "?q=zzz", want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			rr := env.do(t, http.MethodGet, "/api/v1/legislators"+tc.query, "")

			require.Equal(t, http.StatusOK, rr.Code)
			got := decode[LegislatorList](t, rr)
			require.NotNil(t, got.Items)
			yomi := make([]string, 0, len(got.Items))
			for _, l := range got.Items {
				yomi = append(yomi, l.Yomi)
			}
			require.Equal(t, tc.want, yomi)
		})
	}
}

// --- Digests ---

func TestCreateDigest_OK(t *testing.T) {
	env := newTestEnv()
	body := `{"legislator":"山田 太郎","keywords":["防衛","教育"],"from":"2024-01-01","until":"2024-03-31"}`

	rr := env.do(t, http.MethodPost, "/api/v1/digests", body)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, env.digests.calls)
	require.Equal(t, "山田 太郎", env.digests.got.Legislator)
	require.Equal(t, []string{"防衛", "教育"}, env.digests.got.Keywords)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), env.digests.got.From)
	require.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), env.digests.got.Until)

	got := decode[DigestResponse](t, rr)
	require.Equal(t, DigestStatusOK, got.Status)
	require.Empty(t, got.Code)
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, "legislator", got.SubjectKind)
	require.Equal(t, "防衛力強化を主張", got.Headline)
	require.NotNil(t, got.Stance)
	require.InDelta(t, 0.8, got.Stance.Score, 1e-9)
	require.Equal(t, stance.LabelFavour, got.Stance.Label)
	require.Contains(t, got.Stance.Bar, "●")
	require.Len(t, got.Excerpts, 1)
	require.Equal(t, "自由民主党", got.Excerpts[0].Party)
	require.Equal(t, "<mark>防衛</mark>力を強化します。", got.Excerpts[0].Highlighted)
	require.Len(t, got.Diagnostics, 1)
	require.Equal(t, 500, got.Diagnostics[0].StatusCode)
}

func TestCreateDigest_OpenDateRange(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, http.MethodPost, "/api/v1/digests", `{"party":"公明党","keywords":["教育"]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.digests.got.From.IsZero())
	require.True(t, env.digests.got.Until.IsZero())
}

func TestCreateDigest_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{name: "malformed json", body: `{"keywords":`, code: ErrorCodeBadRequest},
		{name: "unknown field", body: `{"keywords":["a"],"speaker":"x"}`, code: ErrorCodeBadRequest},
		{name: "bad from", body: `{"keywords":["a"],"from":"2024/01/01"}`, code: ErrorCodeValidationFailed},
		{name: "bad until", body: `{"keywords":["a"],"until":"yesterday"}`, code: ErrorCodeValidationFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			rr := env.do(t, http.MethodPost, "/api/v1/digests", tc.body)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, tc.code, decode[ErrorResponse](t, rr).Code)
			require.Zero(t, env.digests.calls)
		})
	}
}

func TestCreateDigest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		digest     *digestuc.Digest
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			name:       "selection",
			err:        fmt.Errorf("resolve speakers: %w", domain.NewSelectionError("select a legislator or a party")),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeValidationFailed,
			wantMsg:    "invalid selection: select a legislator or a party",
		},
		{
			name:       "data source",
			err:        fmt.Errorf("load roster: %w", domain.ErrDataSource),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrorCodeDataSourceUnavailable,
			wantMsg:    domain.ErrDataSource.Error(),
		},
		{
			name:       "cancelled",
			err:        fmt.Errorf("search speeches: %w", context.Canceled),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
			wantMsg:    "internal error",
		},
		{
			name:       "quota without digest",
			err:        domain.ErrSummarizationQuota,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   ErrorCodeSummarizationQuota,
			wantMsg:    quotaMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.digests.digest = tc.digest
			env.digests.err = tc.err

			rr := env.do(t, http.MethodPost, "/api/v1/digests", `{"keywords":["防衛"]}`)

			require.Equal(t, tc.wantStatus, rr.Code)
			got := decode[ErrorResponse](t, rr)
			require.Equal(t, tc.wantCode, got.Code)
			require.Equal(t, tc.wantMsg, got.Message)
		})
	}
}

func TestCreateDigest_PartialResults(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		noExcerpts bool
		wantStatus int
		wantState  string
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			name:       "empty result",
			err:        domain.ErrEmptyResult,
			noExcerpts: true,
			wantStatus: http.StatusOK,
			wantState:  DigestStatusEmpty,
			wantMsg:    domain.ErrEmptyResult.Error(),
		},
		{
			name:       "quota",
			err:        fmt.Errorf("summarize: %w", domain.ErrSummarizationQuota),
			wantStatus: http.StatusTooManyRequests,
			wantState:  DigestStatusPartial,
			wantCode:   ErrorCodeSummarizationQuota,
			wantMsg:    quotaMessage,
		},
		{
			name:       "summarization",
			err:        fmt.Errorf("summarize: %w", errors.Join(domain.ErrSummarization, errors.New("eof"))),
			wantStatus: http.StatusBadGateway,
			wantState:  DigestStatusPartial,
			wantCode:   ErrorCodeSummarizationFailed,
			wantMsg:    domain.ErrSummarization.Error(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			d := sampleDigest()
			d.Headline, d.Summary, d.Stance, d.Model = "", "", nil, ""
			if tc.noExcerpts {
				d.Excerpts = nil
			}
			env.digests.digest = d
			env.digests.err = tc.err

			rr := env.do(t, http.MethodPost, "/api/v1/digests", `{"keywords":["防衛"]}`)

			require.Equal(t, tc.wantStatus, rr.Code)
			got := decode[DigestResponse](t, rr)
			require.Equal(t, tc.wantState, got.Status)
			require.Equal(t, tc.wantCode, got.Code)
			require.Equal(t, tc.wantMsg, got.Message)
			require.Nil(t, got.Stance)
			require.NotNil(t, got.Excerpts)
			require.Len(t, got.Diagnostics, 1)
			if !tc.noExcerpts {
				require.Len(t, got.Excerpts, 1)
			}
		})
	}
}

// --- Health & routing ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			env := newTestEnv()
			env.health.report = healthuc.Report{
				Status: tc.status,
				Checks: map[string]healthuc.CheckResult{
					healthuc.ComponentRoster: healthuc.CheckOK,
					healthuc.ComponentCache:  healthuc.CheckError,
				},
			}

			rr := env.do(t, http.MethodGet, "/health", "")

			require.Equal(t, tc.want, rr.Code)
			got := decode[HealthResponse](t, rr)
			require.Equal(t, string(tc.status), got.Status)
			require.Equal(t, "error", got.Checks[healthuc.ComponentCache])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouting_JSONErrors(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/api/v1/unknown", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, ErrorCodeNotFound, decode[ErrorResponse](t, rr).Code)

	rr = env.do(t, http.MethodGet, "/api/v1/digests", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, ErrorCodeMethodNotAllowed, decode[ErrorResponse](t, rr).Code)
}

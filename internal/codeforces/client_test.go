package codeforces

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"cfcatalyst/internal/common"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testClient(t *testing.T, wantPath string, body string) *Client {
	t.Helper()
	return NewClient("http://cf.test/api", &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/"+wantPath, r.URL.Path)
			return jsonResponse(http.StatusOK, body), nil
		}),
	})
}

func TestUserStatusParsesSubmissions(t *testing.T) {
	body := `{"status":"OK","result":[
		{"contestId":1800,"creationTimeSeconds":1700000000,
		 "problem":{"contestId":1800,"index":"C","name":"Remove the Bracket",
		   "rating":1400,"tags":["Dynamic Programming","greedy"]},
		 "programmingLanguage":"GNU C++20","verdict":"OK"},
		{"creationTimeSeconds":1700000100,
		 "problem":{"contestId":1800,"index":"D","name":"Other","rating":1600,"tags":[]},
		 "programmingLanguage":"GNU C++20","verdict":"WRONG_ANSWER"}
	]}`
	c := testClient(t, "user.status", body)

	subs, err := c.UserStatus(context.Background(), "someone", 100)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	require.Equal(t, "1800C", subs[0].ProblemID)
	require.Equal(t, 1800, subs[0].ContestID)
	require.Equal(t, []string{"dynamic-programming", "greedy"}, subs[0].Tags)
	require.True(t, subs[0].Accepted())
	require.Equal(t, int64(1700000000), subs[0].CreatedAt.Unix())

	require.Equal(t, "1800D", subs[1].ProblemID)
	require.False(t, subs[1].Accepted())
}

func TestUserRating(t *testing.T) {
	c := testClient(t, "user.info", `{"status":"OK","result":[{"handle":"someone","rating":1742}]}`)

	got, err := c.UserRating(context.Background(), "someone")
	require.NoError(t, err)
	require.Equal(t, 1742, got)
}

func TestUserRatingUnratedHandle(t *testing.T) {
	c := testClient(t, "user.info", `{"status":"OK","result":[{"handle":"fresh"}]}`)

	got, err := c.UserRating(context.Background(), "fresh")
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestContestListDerivesFormat(t *testing.T) {
	body := `{"status":"OK","result":[
		{"id":1900,"name":"Codeforces Round 912 (Div. 2)","phase":"FINISHED","startTimeSeconds":1700000000},
		{"id":1901,"name":"Educational Codeforces Round 158 (Rated for Div. 2)","phase":"FINISHED","startTimeSeconds":1700100000}
	]}`
	c := testClient(t, "contest.list", body)

	contests, err := c.ContestList(context.Background())
	require.NoError(t, err)
	require.Len(t, contests, 2)
	require.Equal(t, "Div. 2", contests[0].Format)
	require.Equal(t, "Educational", contests[1].Format)
}

func TestProblemSetMergesSolveStatistics(t *testing.T) {
	body := `{"status":"OK","result":{
		"problems":[
			{"contestId":1800,"index":"C","name":"Remove the Bracket","rating":1400,"tags":["dp"]},
			{"contestId":1801,"index":"A","name":"Unrated One","tags":["implementation"]}
		],
		"problemStatistics":[
			{"contestId":1800,"index":"C","solvedCount":12345}
		]}}`
	c := testClient(t, "problemset.problems", body)

	problems, err := c.ProblemSet(context.Background())
	require.NoError(t, err)
	require.Len(t, problems, 2)

	require.Equal(t, "1800C", problems[0].ID)
	require.Equal(t, 12345, problems[0].SolvedCount)
	require.Equal(t, 1400, *problems[0].Rating)

	require.Equal(t, "1801A", problems[1].ID)
	require.Nil(t, problems[1].Rating)
	require.Zero(t, problems[1].SolvedCount)
}

func TestFailedEnvelopeWrapsUpstreamError(t *testing.T) {
	c := testClient(t, "user.info", `{"status":"FAILED","comment":"handles: User not found"}`)

	_, err := c.UserRating(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrUpstream)
	require.Contains(t, err.Error(), "User not found")
}

func TestNon200StatusWrapsUpstreamError(t *testing.T) {
	c := NewClient("http://cf.test/api", &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusServiceUnavailable, ""), nil
		}),
	})

	_, err := c.ContestList(context.Background())
	require.ErrorIs(t, err, common.ErrUpstream)
}

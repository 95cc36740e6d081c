package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
)

const defaultBaseURL = "https://codeforces.com/api"

// Client wraps the public Codeforces archive API. All calls are bounded by
// the caller's context; failures wrap common.ErrUpstream so callers can
// degrade instead of propagating a hard failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type rawProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
}

type rawSubmission struct {
	ContestID           int        `json:"contestId"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	Problem             rawProblem `json:"problem"`
	ProgrammingLanguage string     `json:"programmingLanguage"`
	Verdict             string     `json:"verdict"`
}

type rawUser struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
}

type rawContest struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
}

type rawProblemStatistic struct {
	ContestID   int    `json:"contestId"`
	Index       string `json:"index"`
	SolvedCount int    `json:"solvedCount"`
}

type rawProblemSet struct {
	Problems          []rawProblem          `json:"problems"`
	ProblemStatistics []rawProblemStatistic `json:"problemStatistics"`
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + "/" + method
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("codeforces %s: %v: %w", method, err, common.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("codeforces %s returned status %d: %w", method, resp.StatusCode, common.ErrUpstream)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("codeforces %s decode: %v: %w", method, err, common.ErrUpstream)
	}
	if envelope.Status != "OK" {
		return fmt.Errorf("codeforces %s: %s: %w", method, envelope.Comment, common.ErrUpstream)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("codeforces %s result decode: %v: %w", method, err, common.ErrUpstream)
	}
	return nil
}

// UserStatus fetches up to count entries of a user's submission history,
// newest first.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]model.Submission, error) {
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(count))

	var raw []rawSubmission
	if err := c.get(ctx, "user.status", params, &raw); err != nil {
		return nil, err
	}

	subs := make([]model.Submission, 0, len(raw))
	for _, s := range raw {
		contestID := s.Problem.ContestID
		if contestID == 0 {
			contestID = s.ContestID
		}
		subs = append(subs, model.Submission{
			ContestID:    contestID,
			ProblemIndex: s.Problem.Index,
			ProblemID:    model.ProblemID(contestID, s.Problem.Index),
			Rating:       s.Problem.Rating,
			Tags:         model.NormalizeTags(s.Problem.Tags),
			Verdict:      s.Verdict,
			CreatedAt:    time.Unix(s.CreationTimeSeconds, 0).UTC(),
			Language:     s.ProgrammingLanguage,
		})
	}
	return subs, nil
}

// UserRating returns the user's current rating, 0 for unrated handles.
func (c *Client) UserRating(ctx context.Context, handle string) (int, error) {
	params := url.Values{}
	params.Set("handles", handle)

	var raw []rawUser
	if err := c.get(ctx, "user.info", params, &raw); err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("codeforces user.info returned no user for %q: %w", handle, common.ErrUpstream)
	}
	return raw[0].Rating, nil
}

// ContestList fetches the archive contest list (gym excluded).
func (c *Client) ContestList(ctx context.Context) ([]model.Contest, error) {
	params := url.Values{}
	params.Set("gym", "false")

	var raw []rawContest
	if err := c.get(ctx, "contest.list", params, &raw); err != nil {
		return nil, err
	}

	contests := make([]model.Contest, 0, len(raw))
	for _, rc := range raw {
		contests = append(contests, model.Contest{
			ID:       rc.ID,
			Name:     rc.Name,
			Format:   model.ContestFormatFromName(rc.Name),
			Phase:    rc.Phase,
			StartsAt: time.Unix(rc.StartTimeSeconds, 0).UTC(),
		})
	}
	return contests, nil
}

// ProblemSet fetches the whole problemset with per-problem solve statistics.
func (c *Client) ProblemSet(ctx context.Context) ([]model.Problem, error) {
	var raw rawProblemSet
	if err := c.get(ctx, "problemset.problems", url.Values{}, &raw); err != nil {
		return nil, err
	}

	solvedCounts := make(map[string]int, len(raw.ProblemStatistics))
	for _, st := range raw.ProblemStatistics {
		solvedCounts[model.ProblemID(st.ContestID, st.Index)] = st.SolvedCount
	}

	problems := make([]model.Problem, 0, len(raw.Problems))
	for _, rp := range raw.Problems {
		id := model.ProblemID(rp.ContestID, rp.Index)
		problems = append(problems, model.Problem{
			ID:          id,
			ContestID:   rp.ContestID,
			Index:       rp.Index,
			Name:        rp.Name,
			Rating:      rp.Rating,
			Tags:        model.NormalizeTags(rp.Tags),
			SolvedCount: solvedCounts[id],
		})
	}
	return problems, nil
}

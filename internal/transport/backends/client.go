// Package backends dispatches normalized queries to the downstream search
// services. The projects service and the users directory of the auth service
// are the only two targets; their response documents are treated as opaque.
package backends

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
	"github.com/skillswap/voicesearch/internal/domain/search"
	"github.com/skillswap/voicesearch/internal/metrics"
)

const (
	projectsSearchPath = "/api/projects"
	usersSearchPath    = "/api/auth/users/search"
)

// Config holds the downstream endpoints and the per-call timeout.
type Config struct {
	ProjectsURL string
	UsersURL    string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Client calls the downstream search services.
type Client struct {
	http        *http.Client
	projectsURL string
	usersURL    string
	logger      *zap.Logger
}

// New creates a dispatcher client with a bounded per-call timeout.
func New(cfg Config) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		projectsURL: strings.TrimRight(cfg.ProjectsURL, "/"),
		usersURL:    strings.TrimRight(cfg.UsersURL, "/"),
		logger:      cfg.Logger,
	}
}

// Search routes the query to the backend matching its kind and classifies the
// outcome. token, when non-empty, is forwarded as a bearer credential;
// authorization enforcement is the downstream service's concern.
func (c *Client) Search(ctx context.Context, q search.Query, token string) (search.ResultDocument, error) {
	endpoint, err := c.endpointFor(q.Kind())
	if err != nil {
		return search.ResultDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return search.ResultDocument{}, fmt.Errorf("build backend request: %w", domain.ErrDispatchFailed)
	}
	req.URL.RawQuery = buildParams(q).Encode()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	kind := string(q.Kind())
	start := time.Now()

	resp, err := c.http.Do(req)

	metrics.BackendRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		// Transport failure or timeout: connection refused, DNS, deadline.
		metrics.BackendRequestsTotal.WithLabelValues(kind, "unreachable").Inc()
		c.logger.Error("Backend request failed",
			zap.String("kind", kind), zap.Error(err))
		return search.ResultDocument{}, fmt.Errorf("backend request: %v: %w", err, domain.ErrBackendUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.BackendRequestsTotal.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Backend returned non-success status",
			zap.String("kind", kind), zap.Int("status", resp.StatusCode))
		return search.ResultDocument{}, domain.NewBackendStatus(resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return search.ResultDocument{}, fmt.Errorf("read backend response: %v: %w", err, domain.ErrDispatchFailed)
	}

	return search.ResultDocument{Payload: payload, Total: search.ExtractTotal(payload)}, nil
}

func (c *Client) endpointFor(kind search.Kind) (string, error) {
	switch kind {
	case search.KindProjects:
		return c.projectsURL + projectsSearchPath, nil
	case search.KindUsers:
		return c.usersURL + usersSearchPath, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSearchType, kind)
	}
}

// buildParams renders the kind-specific parameter set. Absent filters are
// omitted entirely, never sent as empty values.
func buildParams(q search.Query) url.Values {
	params := url.Values{}
	params.Set("search", q.Text())
	params.Set("page", strconv.Itoa(q.Page()))
	params.Set("limit", strconv.Itoa(q.PageSize()))

	f := q.Filters()
	if len(f.Skills) > 0 {
		params.Set("skills", strings.Join(f.Skills, ","))
	}

	switch q.Kind() {
	case search.KindProjects:
		if f.Category != nil {
			params.Set("category", *f.Category)
		}
		if f.BudgetMin != nil {
			params.Set("budget_min", strconv.FormatFloat(*f.BudgetMin, 'f', -1, 64))
		}
		if f.BudgetMax != nil {
			params.Set("budget_max", strconv.FormatFloat(*f.BudgetMax, 'f', -1, 64))
		}
	case search.KindUsers:
		if f.Role != nil {
			params.Set("role", *f.Role)
		}
	}
	return params
}

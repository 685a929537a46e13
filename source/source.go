package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/relvacode/iso8601"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tidepool-org/vitals/config"
	"github.com/tidepool-org/vitals/readings"
)

const (
	statusError = "Error"

	timestampField = "timestamp"
	dateLayout     = "2006-01-02"

	maxErrorBodySize = 1024
)

var ErrUpstream = errors.New("upstream error")

//go:generate mockgen --build_flags=--mod=mod -source=./source.go -destination=./test/mock_source.go -package test

// Source fetches the full reading history of a patient for a metric
type Source interface {
	Fetch(ctx context.Context, patientId string, metric readings.Metric) ([]readings.Reading, error)
}

type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
	profiles   readings.Profiles
	tokens     oauth2.TokenSource
	location   *time.Location
	logger     *zap.SugaredLogger
}

var _ Source = &Client{}

func NewClient(clientConfig *ClientConfig, cfg *config.Config, logger *zap.SugaredLogger) (*Client, error) {
	baseUrl, err := url.Parse(clientConfig.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid source base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("invalid source base url %q", clientConfig.BaseUrl)
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	return &Client{
		baseUrl:    baseUrl,
		httpClient: &http.Client{Timeout: clientConfig.Timeout},
		profiles:   cfg.Profiles,
		tokens:     newTokenSource(clientConfig),
		location:   location,
		logger:     logger,
	}, nil
}

func newTokenSource(cfg *ClientConfig) oauth2.TokenSource {
	if cfg.ClientId != "" && cfg.ClientSecret != "" && cfg.TokenUrl != "" {
		credentials := &clientcredentials.Config{
			ClientID:     cfg.ClientId,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenUrl,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		return credentials.TokenSource(context.Background())
	}
	if cfg.ServiceToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.ServiceToken})
	}
	return nil
}

type envelope struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
	Error  string                 `json:"error"`
}

type record struct {
	Timestamp interface{}            `mapstructure:"timestamp"`
	Fields    map[string]interface{} `mapstructure:",remain"`
}

func (c *Client) Fetch(ctx context.Context, patientId string, metric readings.Metric) ([]readings.Reading, error) {
	profile, err := c.profiles.Get(metric)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, profile.Path, patientId)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to fetch %s: %w", ErrUpstream, metric, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		return nil, fmt.Errorf("%w: unexpected response status %d: %s", ErrUpstream, res.StatusCode, strings.TrimSpace(string(body)))
	}

	env := envelope{}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: unable to decode response: %w", ErrUpstream, err)
	}
	if env.Status == statusError || env.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, env.Error)
	}

	return c.decodeReadings(env.Data[profile.Collection], profile)
}

func (c *Client) newRequest(ctx context.Context, path string, patientId string) (*http.Request, error) {
	endpoint := c.baseUrl.JoinPath(path)
	query := endpoint.Query()
	query.Set("patientId", patientId)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if token := bearerTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("unable to obtain source token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	return req, nil
}

func (c *Client) decodeReadings(collection interface{}, profile readings.Profile) ([]readings.Reading, error) {
	if collection == nil {
		return []readings.Reading{}, nil
	}

	elements, ok := collection.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid %s collection: expected an array, got %T", ErrUpstream, profile.Collection, collection)
	}

	result := make([]readings.Reading, 0, len(elements))
	dropped := 0
	for _, element := range elements {
		rec := record{}
		if _, ok := element.(map[string]interface{}); !ok {
			dropped++
			continue
		}
		if err := mapstructure.Decode(element, &rec); err != nil {
			dropped++
			continue
		}

		reading := readings.Reading{
			Timestamp: parseTimestamp(rec.Timestamp, c.location),
			Value:     parseValue(rec.Fields[profile.ValueField]),
		}
		if !reading.Valid() {
			dropped++
		}
		result = append(result, reading)
	}
	if dropped > 0 {
		c.logger.Debugw("received malformed readings", "collection", profile.Collection, "field", profile.ValueField, "count", dropped)
	}

	return result, nil
}

// parseTimestamp accepts ISO 8601 strings and epoch milliseconds, anything else yields the zero
// time. Strings without a zone are read in the display location.
func parseTimestamp(value interface{}, location *time.Location) time.Time {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		// "2024-03-01 10:00:03" is sent by some devices
		if len(v) > len(dateLayout) && v[len(dateLayout)] == ' ' {
			v = v[:len(dateLayout)] + "T" + v[len(dateLayout)+1:]
		}
		t, err := iso8601.ParseInLocation([]byte(v), location)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}
		}
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Time{}
	}
}

// parseValue decodes numbers sent either as JSON numbers or as strings, anything else yields NaN
func parseValue(value interface{}) float64 {
	if value == nil {
		return math.NaN()
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return math.NaN()
	} else if ok {
		value = strings.TrimSpace(s)
	}

	var result float64
	if err := mapstructure.WeakDecode(value, &result); err != nil {
		return math.NaN()
	}
	return result
}

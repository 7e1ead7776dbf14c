package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"staybook/pkg/logger"

	"github.com/sony/gobreaker"
)

var ErrUpstream = errors.New("accommodation service error")

// AccommodationClient calls the accommodation service behind a circuit breaker.
type AccommodationClient struct {
	http    *HttpClient
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewAccommodationClient(baseURL string, timeout time.Duration, log *logger.Logger) *AccommodationClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "accommodation-service",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &AccommodationClient{
		http:    NewHttpClient(baseURL, timeout),
		breaker: breaker,
		timeout: timeout,
	}
}

// AutoConfirm reports whether new requests for the accommodation are approved immediately.
func (c *AccommodationClient) AutoConfirm(ctx context.Context, accommodationID string) (bool, error) {
	var body struct {
		AutoConfirm bool `json:"autoConfirm"`
	}
	path := "/api/accommodations/" + url.PathEscape(accommodationID) + "/auto-confirm"
	if err := c.getJSON(ctx, path, nil, &body); err != nil {
		return false, err
	}
	return body.AutoConfirm, nil
}

// HostAccommodations lists the ids of the accommodations owned by a host. The caller's bearer
// token is forwarded.
func (c *AccommodationClient) HostAccommodations(ctx context.Context, hostID, token string) ([]string, error) {
	var ids []string
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	path := "/api/accommodations/host/" + url.PathEscape(hostID)
	if err := c.getJSON(ctx, path, headers, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *AccommodationClient) getJSON(ctx context.Context, path string, headers map[string]string, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.GET(ctx, path, headers)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", ErrUpstream, GetErrorMessage(resp))
		}
		return resp, nil
	})
	if err != nil {
		return err
	}

	resp := result.(*Response)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUpstream, GetErrorMessage(resp))
	}
	if err := resp.DecodeJSON(target); err != nil {
		return fmt.Errorf("failed to decode accommodation response: %w", err)
	}
	return nil
}

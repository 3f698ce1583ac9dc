package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// FetchToken obtains a websocket token from the relay running at baseURL. Transient failures are
// retried until the context is done.
func FetchToken(ctx context.Context, httpClient *http.Client, baseURL string) (string, error) {
	var token string
	url := strings.TrimSuffix(baseURL, "/") + "/api/get-ws-token"
	if retryErr := retry.Do(
		func() error {
			var fetchErr error
			token, fetchErr = fetchToken(ctx, httpClient, url)
			return fetchErr
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(200*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			logrus.Debugf("Fetching token from %s failed (attempt %d): %v", url, n+1, err)
		}),
	); retryErr != nil {
		return "", fmt.Errorf("failed to fetch token: %w", retryErr)
	}
	return token, nil
}

func fetchToken(ctx context.Context, httpClient *http.Client, url string) (string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return "", retry.Unrecoverable(reqErr)
	}
	resp, doErr := httpClient.Do(req)
	if doErr != nil {
		return "", doErr
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	var body tokenResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if body.Token == "" {
		return "", retry.Unrecoverable(fmt.Errorf("response does not contain a token"))
	}
	return body.Token, nil
}

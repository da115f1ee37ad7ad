package token

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const googleRevokeEndpoint = "https://oauth2.googleapis.com/revoke"

func revokeUpstream(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeEndpoint, nil)
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send revoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke request returned status %d", resp.StatusCode)
	}
	return nil
}

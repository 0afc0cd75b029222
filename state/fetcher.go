package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/courtsidehq/tournament-service/models"
)

// SnapshotFetcher loads a full tournament snapshot from the server.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

// HTTPSnapshotFetcher pulls snapshots from the tournament API.
type HTTPSnapshotFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSnapshotFetcher(baseURL string) *HTTPSnapshotFetcher {
	return &HTTPSnapshotFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *HTTPSnapshotFetcher) FetchSnapshot(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	url := fmt.Sprintf("%s/api/tournaments/%d", f.BaseURL, tournamentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request for tournament %d returned status %d", tournamentID, resp.StatusCode)
	}

	var t models.Tournament
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &t, nil
}

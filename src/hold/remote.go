package hold

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteSource fetches the hold document from an HTTP endpoint, for setups
// where holds are maintained in a shared admin service instead of a local file.
type RemoteSource struct {
	client *resty.Client
	url    string
}

func NewRemoteSource(url string) *RemoteSource {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2)

	return &RemoteSource{client: client, url: url}
}

func (r *RemoteSource) Fetch() (*Document, error) {
	var doc Document

	resp, err := r.client.R().
		SetResult(&doc).
		Get(r.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hold endpoint returned status %d", resp.StatusCode())
	}

	return &doc, nil
}

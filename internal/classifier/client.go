package classifier

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/config"
	"go.uber.org/zap"
)

// VerdictProvider asks an external model for a free-text severity
// assessment of a transcript. The verdict is advisory: an empty string
// means "no verdict" and the caller falls back to its own default.
type VerdictProvider interface {
	Assess(ctx context.Context, transcript, incidentType, locationLabel string) string
}

type assessRequest struct {
	Transcript    string `json:"transcript"`
	IncidentType  string `json:"incident_type"`
	LocationLabel string `json:"location_label"`
}

type assessResponse struct {
	Verdict string `json:"verdict"`
}

type httpProvider struct {
	client   *resty.Client
	endpoint string
	logger   *zap.Logger
}

// NewHTTPProvider builds a provider against the configured endpoint.
// With no endpoint configured every assessment returns no verdict.
func NewHTTPProvider(cfg *config.ClassifierConfig, logger *zap.Logger) VerdictProvider {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &httpProvider{client: client, endpoint: cfg.Endpoint, logger: logger}
}

func (p *httpProvider) Assess(ctx context.Context, transcript, incidentType, locationLabel string) string {
	if p.endpoint == "" {
		return ""
	}

	var parsed assessResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(assessRequest{
			Transcript:    transcript,
			IncidentType:  incidentType,
			LocationLabel: locationLabel,
		}).
		SetResult(&parsed).
		Post(p.endpoint)
	if err != nil {
		p.logger.Warn("severity assessment call failed", zap.Error(err))
		return ""
	}
	if !resp.IsSuccess() {
		p.logger.Warn("severity assessment rejected", zap.Int("status", resp.StatusCode()))
		return ""
	}
	return parsed.Verdict
}

package blacklist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

// Provider fetches the excluded-locator set from a shared spreadsheet's CSV
// export. The sheet is operator-maintained; one column holds locators and
// everything else is ignored.
type Provider struct {
	cfg    common.BlacklistConfig
	client *http.Client
	logger arbor.ILogger
}

func NewProvider(cfg common.BlacklistConfig, logger arbor.ILogger) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

// Fetch downloads and parses the sheet. An unset URL yields an empty set
// without a request. Any failure is returned for the caller to degrade on.
func (p *Provider) Fetch(ctx context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if p.cfg.URL == "" {
		return set, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build blacklist request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch blacklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch blacklist: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse blacklist csv: %w", err)
		}
		if first {
			// Header row, when present, never holds a locator.
			first = false
			if looksLikeHeader(row, p.cfg.Column) {
				continue
			}
		}
		if p.cfg.Column >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[p.cfg.Column])
		if value != "" {
			set[value] = struct{}{}
		}
	}

	p.logger.Debug().
		Int("entries", len(set)).
		Msg("Blacklist parsed")
	return set, nil
}

func looksLikeHeader(row []string, column int) bool {
	if column >= len(row) {
		return true
	}
	value := strings.ToLower(strings.TrimSpace(row[column]))
	return value == "" || value == "locator" || value == "url" || value == "link" || value == "profile"
}

var _ interfaces.BlacklistProvider = (*Provider)(nil)

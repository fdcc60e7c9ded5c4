package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"phonebridge/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ContactClient searches CRM contacts and leads by phone number.
//
// The CRM search API is rate-limited, so lookups are cached in redis per
// phone variant (empty results included) and variant probing short-circuits
// on the first hit.
type ContactClient struct {
	apiBase  string
	http     *http.Client
	tokens   TokenSource
	cache    *redis.Client
	cacheTTL time.Duration
}

type ContactClientConfig struct {
	APIBase  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

func NewContactClient(cfg ContactClientConfig, tokens TokenSource, cache *redis.Client) *ContactClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ContactClient{
		apiBase:  cfg.APIBase,
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		cache:    cache,
		cacheTTL: ttl,
	}
}

// searchModules are probed in display-priority order for each variant.
var searchModules = []string{"Contacts", "Leads"}

// SearchByPhone tries each variant in order and returns the matches for the
// first variant that yields any. An empty slice with nil error means the
// number is unknown to the CRM.
func (c *ContactClient) SearchByPhone(ctx context.Context, variants []string) ([]Contact, error) {
	token, err := c.tokens.AccessToken(ctx, "")
	if err != nil {
		return nil, err
	}

	for _, variant := range variants {
		if variant == "" {
			continue
		}
		if cached, ok := c.cacheGet(ctx, variant); ok {
			if len(cached) > 0 {
				return cached, nil
			}
			continue
		}

		found := []Contact{}
		for _, module := range searchModules {
			recs, err := c.searchModule(ctx, token, module, variant)
			if err != nil {
				return nil, err
			}
			found = append(found, recs...)
		}
		c.cacheSet(ctx, variant, found)

		if len(found) > 0 {
			return found, nil
		}
	}
	return []Contact{}, nil
}

func (c *ContactClient) searchModule(ctx context.Context, token, module, phone string) ([]Contact, error) {
	u := fmt.Sprintf("%s/crm/v2/%s/search?phone=%s", c.apiBase, module, url.QueryEscape(phone))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoho %s search: %w", module, err)
	}
	defer resp.Body.Close()

	// 204 is Zoho's "no records matched".
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("zoho %s search: HTTP %d: %s", module, resp.StatusCode, body)
	}

	var out struct {
		Data []struct {
			ID       string `json:"id"`
			FullName string `json:"Full_Name"`
			Company  string `json:"Company"`
			Email    string `json:"Email"`
			Phone    string `json:"Phone"`
			Mobile   string `json:"Mobile"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("zoho %s search: decode: %w", module, err)
	}

	recs := make([]Contact, 0, len(out.Data))
	for _, d := range out.Data {
		phone := d.Phone
		if phone == "" {
			phone = d.Mobile
		}
		recs = append(recs, Contact{
			ID:      d.ID,
			Name:    d.FullName,
			Company: d.Company,
			Email:   d.Email,
			Phone:   phone,
			Module:  module,
		})
	}
	return recs, nil
}

func (c *ContactClient) cacheGet(ctx context.Context, variant string) ([]Contact, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, contactCacheKey(variant)).Bytes()
	if err != nil {
		// Cache miss and cache outage look the same; both fall through
		// to the live search.
		return nil, false
	}
	var recs []Contact
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false
	}
	return recs, true
}

func (c *ContactClient) cacheSet(ctx context.Context, variant string, recs []Contact) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, contactCacheKey(variant), raw, c.cacheTTL).Err(); err != nil {
		logger.From(ctx).Debug("contact cache write failed", "err", err)
	}
}

func contactCacheKey(variant string) string {
	return "phonebridge:contact:" + variant
}

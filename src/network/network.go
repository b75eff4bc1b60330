package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"rates-streamer/src/helpers"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"
)

// -----------------------------------------------------------------------------

// Manager performs HTTP fetches for the quote poller, with retries and an
// optional static proxy.
type Manager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewManager(cfg *models.MConfig, log *logger.Logger) *Manager {
	m := &Manager{
		Config: cfg,
		Logger: log,
	}
	m.Client = m.createClient()
	return m
}

// -----------------------------------------------------------------------------

func (m *Manager) createClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     10 * time.Minute,
	}

	if m.Config.Poller.Proxy != "" {
		proxyURL, err := url.Parse(m.Config.Poller.Proxy)
		if err != nil {
			m.Logger.Warning("Invalid proxy '%s', ignoring: %v", m.Config.Poller.Proxy, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(m.Config.Poller.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and exponential backoff.
func (m *Manager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := m.Config.Poller.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		body, err := m.fetch(finalUrl)
		if err != nil {
			lastErr = err
			m.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}
		return body, nil
	}

	return nil, helpers.NewNetworkError(fmt.Sprintf("GET %s failed", finalUrl), lastErr)
}

// -----------------------------------------------------------------------------

func (m *Manager) fetch(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	if m.Config.Poller.UserAgent != "" {
		req.Header.Set("User-Agent", m.Config.Poller.UserAgent)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

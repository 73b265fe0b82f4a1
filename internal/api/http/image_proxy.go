package apihttp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultImageBaseURL  = "https://image.tmdb.org/t/p"
	defaultImageSize     = "w500"
	maxProxiedImageBytes = int64(10 * 1024 * 1024) // 10MB
)

var (
	posterPathPattern = regexp.MustCompile(`^/[A-Za-z0-9_\-]+\.(?i:jpe?g|png|webp)$`)
	allowedImageSizes = map[string]struct{}{
		"w92": {}, "w154": {}, "w185": {}, "w342": {}, "w500": {}, "w780": {}, "original": {},
	}
)

// handleImageProxy streams a catalog poster. Only poster paths on the
// configured image host are fetched; arbitrary URLs are rejected.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/discover/image" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	target, err := s.posterURL(r.URL.Query().Get("path"), r.URL.Query().Get("size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid image path")
		return
	}
	req.Header.Set("User-Agent", "discovery/1.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := s.imageClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Do not forward upstream body to avoid leaking HTML/JS. Keep it generic.
		writeError(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
		return
	}
	if resp.ContentLength > maxProxiedImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "image too large")
		return
	}

	limited := io.LimitReader(resp.Body, maxProxiedImageBytes)
	head := make([]byte, 512)
	n, readErr := io.ReadFull(limited, head)
	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to read image")
		return
	}
	head = head[:n]

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadGateway, "upstream_error", "not an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(head)
	_, _ = io.Copy(w, limited)
}

func (s *Server) posterURL(path, size string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("missing path")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !posterPathPattern.MatchString(path) {
		return "", errors.New("invalid image path")
	}
	size = strings.TrimSpace(size)
	if size == "" {
		size = defaultImageSize
	}
	if _, ok := allowedImageSizes[size]; !ok {
		return "", errors.New("unsupported image size")
	}
	return s.imageBaseURL + "/" + size + path, nil
}

func newImageProxyClient(baseURL string) *http.Client {
	allowedHost := ""
	if parsed, err := url.Parse(baseURL); err == nil {
		allowedHost = strings.ToLower(parsed.Host)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	dialer := &net.Dialer{Timeout: 8 * time.Second, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   12 * time.Second,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("stopped after 3 redirects")
			}
			if req.URL == nil || strings.ToLower(req.URL.Host) != allowedHost {
				return errors.New("redirect leaves image host")
			}
			return nil
		},
	}
}

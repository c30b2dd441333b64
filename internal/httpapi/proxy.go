package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"llamagate/internal/manager"
)

// chunkSize is the unit in which backend responses are relayed and flushed.
const chunkSize = 4096

// hopHeaders are meaningful for a single connection only and are not relayed.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// newBackendClient returns a client that never times out, never follows
// redirects and never decodes bodies, so the backend's bytes reach the
// caller as sent.
func newBackendClient(rt http.RoundTripper) *http.Client {
	if rt == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = nil
		t.DisableCompression = true
		t.DialContext = (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext
		rt = t
	}
	return &http.Client{
		Transport: rt,
		Timeout:   0,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// copyHeaders copies src into dst, minus Host, hop-by-hop headers and any
// header named by src's Connection field.
func copyHeaders(dst, src http.Header) {
	drop := map[string]bool{"Host": true}
	for _, h := range hopHeaders {
		drop[h] = true
	}
	for _, v := range src.Values("Connection") {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				drop[http.CanonicalHeaderKey(f)] = true
			}
		}
	}
	for k, vv := range src {
		if drop[k] {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// forward replays r against the backend with body and streams the answer
// back. Cancelling r's context (client gone) aborts only this exchange.
func (s *server) forward(w http.ResponseWriter, r *http.Request, b manager.Backend, body io.Reader, length int64) {
	log := requestLog(s.log, r)
	target := b.URL + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "build backend request: "+err.Error())
		return
	}
	copyHeaders(out.Header, r.Header)
	out.ContentLength = length
	if length == 0 {
		out.Body = http.NoBody
	}

	resp, err := s.client.Do(out)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			proxyErrorsTotal.WithLabelValues("client_gone").Inc()
			return
		}
		proxyErrorsTotal.WithLabelValues("backend_unreachable").Inc()
		log.Error().Err(err).Str("target", target).Msg("backend request failed")
		writeJSONError(w, http.StatusBadGateway, "backend request failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	n, err := relay(w, resp.Body)
	proxyBytesTotal.Add(float64(n))
	if err != nil {
		reason := "stream_aborted"
		if r.Context().Err() != nil {
			reason = "client_gone"
		}
		proxyErrorsTotal.WithLabelValues(reason).Inc()
		log.Debug().Err(err).Int64("bytes", n).Str("reason", reason).Msg("relay ended early")
	}
}

// relay copies src to w in chunkSize pieces, flushing after each one.
func relay(w http.ResponseWriter, src io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			_ = rc.Flush()
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

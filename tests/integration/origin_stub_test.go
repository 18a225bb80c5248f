package integration

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// originStub 模拟图片源站：每次返回带序号的正文，并可切换为失败模式。
type originStub struct {
	*httptest.Server

	hits    atomic.Int64
	mu      sync.Mutex
	failing bool
}

func newOriginStub(t *testing.T) *originStub {
	t.Helper()
	stub := &originStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := stub.hits.Add(1)
		stub.mu.Lock()
		failing := stub.failing
		stub.mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-" + strconv.FormatInt(n, 10)))
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *originStub) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *originStub) Hits() int64 {
	return s.hits.Load()
}

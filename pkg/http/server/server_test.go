package httpserver_test

import (
	"io"
	"net/http"
	"testing"

	httpserver "ytbatch/pkg/http/server"
)

func TestServer(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	srv, err := httpserver.New(handler, httpserver.Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "pong" {
		t.Errorf("got %q, want pong", body)
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if err, ok := <-srv.Notify(); ok {
		t.Errorf("unexpected serve error: %v", err)
	}
}

func TestServerAddrInUse(t *testing.T) {
	t.Parallel()

	first, err := httpserver.New(http.NotFoundHandler(), httpserver.Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = first.Shutdown() })

	if _, err := httpserver.New(http.NotFoundHandler(), httpserver.Options{Addr: first.Addr()}); err == nil {
		t.Error("expected bind error")
	}
}

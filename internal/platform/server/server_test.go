package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"file-gallery/internal/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Host: "127.0.0.1",
		Port: "9090",
		Server: &config.ServerConfig{
			ReadTimeout:  time.Second,
			WriteTimeout: 2 * time.Second,
			IdleTimeout:  3 * time.Second,
		},
	}

	srv := New(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadTimeout)
	assert.Equal(t, 2*time.Second, srv.WriteTimeout)
	assert.Equal(t, 3*time.Second, srv.IdleTimeout)
	assert.Equal(t, defaultReadHeaderTimeout, srv.ReadHeaderTimeout)
}

func TestNewWithoutTimeouts(t *testing.T) {
	srv := New(&config.Config{Port: "80"}, http.NotFoundHandler())

	assert.Equal(t, ":80", srv.Addr)
	assert.Zero(t, srv.WriteTimeout)
}

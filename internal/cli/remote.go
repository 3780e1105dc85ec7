package cli

import (
	"context"
	"net"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
	"github.com/asad-creats/taskagent/pkg/client"
)

// daemonClient returns an API client for the daemon running under home, or
// false when none is running.
func daemonClient(ctx context.Context, home string, cfg *config.Config) (*client.Client, bool) {
	st, err := daemon.Status(ctx, home)
	if err != nil || !st.Running {
		return nil, false
	}
	return client.New(baseURL(st.Addr), cfg.Server.APIKey), true
}

// baseURL turns a listen address like 0.0.0.0:4280 into a dialable URL.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

package transmission

import (
	"context"
)

// SessionStats runs session-stats.
func (c *Client) SessionStats(ctx context.Context) (*Response, error) {
	return c.invoke(ctx, "get session stats", MethodSessionStats, nil)
}

// SessionGet runs session-get.
func (c *Client) SessionGet(ctx context.Context) (*Response, error) {
	return c.invoke(ctx, "get session", MethodSessionGet, nil)
}

// SessionSet runs session-set with the given settings, keyed by their wire
// names (e.g. "speed-limit-down").
func (c *Client) SessionSet(ctx context.Context, settings Mapper) (*Response, error) {
	args := mergeArgs(settings, nil)
	if len(SanitizeArguments(args)) == 0 {
		return nil, invalidArgument("session-set requires at least one setting")
	}
	return c.invoke(ctx, "set session", MethodSessionSet, args)
}

// GetSessionStats is SessionStats decoded.
func (c *Client) GetSessionStats(ctx context.Context) (*SessionStats, error) {
	resp, err := c.SessionStats(ctx)
	if err != nil {
		return nil, err
	}

	var stats SessionStats
	if err := resp.Decode(&stats); err != nil {
		return nil, protocolError("error decoding session stats", err)
	}
	return &stats, nil
}

// GetSessionInfo is SessionGet decoded. It also caches the daemon's RPC
// version.
func (c *Client) GetSessionInfo(ctx context.Context) (*SessionInfo, error) {
	resp, err := c.SessionGet(ctx)
	if err != nil {
		return nil, err
	}

	var info SessionInfo
	if err := resp.Decode(&info); err != nil {
		return nil, protocolError("error decoding session info", err)
	}

	if info.RPCVersion > 0 {
		c.mu.Lock()
		c.rpcVersion = info.RPCVersion
		c.mu.Unlock()
	}
	return &info, nil
}

// RPCVersion returns the daemon's RPC version. Config.RPCVersion wins when
// set; otherwise session-get is queried once and the value cached.
func (c *Client) RPCVersion(ctx context.Context) (int, error) {
	c.mu.RLock()
	configured, cached := c.config.RPCVersion, c.rpcVersion
	c.mu.RUnlock()

	if configured > 0 {
		return configured, nil
	}
	if cached > 0 {
		return cached, nil
	}

	info, err := c.GetSessionInfo(ctx)
	if err != nil {
		return 0, err
	}
	if info.RPCVersion <= 0 {
		return 0, protocolError("session-get did not report rpc-version", nil)
	}
	return info.RPCVersion, nil
}

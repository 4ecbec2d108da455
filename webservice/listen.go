package webservice

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/mnehpets/rpcserve/config"
)

// Listen opens a TCP listener on host at the first free port of ports:
// an empty list picks an ephemeral port, one entry is that port, and two
// entries are an inclusive range tried in order.
func Listen(ctx context.Context, host string, ports []int) (net.Listener, error) {
	var lc net.ListenConfig
	listen := func(port int) (net.Listener, error) {
		return lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	}

	switch len(ports) {
	case 0:
		return listen(0)
	case 1:
		return listen(ports[0])
	case 2:
		var lastErr error
		for port := ports[0]; port <= ports[1]; port++ {
			ln, err := listen(port)
			if err == nil {
				return ln, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr == nil {
			return nil, fmt.Errorf("%w: empty range %d-%d", config.ErrInvalidPorts, ports[0], ports[1])
		}
		return nil, fmt.Errorf("webservice: no free port in %d-%d on %s: %w", ports[0], ports[1], host, lastErr)
	}
	return nil, fmt.Errorf("%w: %v", config.ErrInvalidPorts, ports)
}

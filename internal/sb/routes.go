package sb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// RouteResolver fetches the current object-to-node routes from the
// cluster. The dump is computed cluster-side with a single remote
// invocation: route computation needs cluster-wide index state that is
// far cheaper to assemble on a cluster node than to reconstruct over
// the remote link.
type RouteResolver struct {
	runner  Runner
	host    string
	command string
	logger  Logger
}

// NewRouteResolver creates a resolver that runs command on host.
func NewRouteResolver(runner Runner, host, command string, logger Logger) *RouteResolver {
	return &RouteResolver{
		runner:  runner,
		host:    host,
		command: command,
		logger:  logger,
	}
}

// Resolve runs the route-dump command and decodes its output.
// An empty dump is a valid result (empty cluster), not an error.
func (r *RouteResolver) Resolve(ctx context.Context) ([]Route, error) {
	r.logger.Debug("dumping routes", "host", r.host)

	out, err := r.runner.Run(ctx, r.host, r.command)
	if err != nil {
		return nil, fmt.Errorf("dumping routes on %s: %w", r.host, err)
	}

	routes, err := ParseRoutes(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decoding route dump: %w", err)
	}

	r.logger.Info("routes resolved", "host", r.host, "count", len(routes))
	return routes, nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// ParseRoutes decodes a route dump: one route per line, the object path
// first, then one or more owning node IDs, whitespace-separated. Dumps
// that were gzip-compressed in transit are detected by magic bytes and
// decompressed transparently.
func ParseRoutes(r io.Reader) ([]Route, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		return parseRouteLines(zr)
	}

	return parseRouteLines(br)
}

func parseRouteLines(r io.Reader) ([]Route, error) {
	var routes []Route

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for sc.Scan() {
		n++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("route line %d: object %q has no owning node", n, fields[0])
		}
		routes = append(routes, Route{Object: fields[0], Nodes: fields[1:]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading route dump: %w", err)
	}

	return routes, nil
}

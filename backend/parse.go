package backend

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/henrlaas/medialib/data"
)

const (
	ProtocolEphemeral = "ephemeral"
	ProtocolSqlite    = "sqlite"
	ProtocolPostgres  = "postgres"
	ProtocolS3        = "s3"
	ProtocolConsul    = "consul"
)

// Address is a parsed backend address such as "s3://key:secret@localhost:9000?ssl=false".
type Address struct {
	Protocol string
	Raw      string

	Host     string
	Path     string
	Username string
	Password string
	Params   url.Values
}

// Param returns the named query parameter or def when it is absent.
func (a *Address) Param(name, def string) string {
	if a.Params == nil || !a.Params.Has(name) {
		return def
	}
	return a.Params.Get(name)
}

// BoolParam interprets the named query parameter as a boolean flag.
func (a *Address) BoolParam(name string, def bool) bool {
	switch strings.ToLower(a.Param(name, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func ParseBackendAddress(address string) (*Address, error) {
	// Format address
	address = strings.TrimSpace(address)
	// Quick check to identify if we work with a possibly valid address
	if !strings.Contains(address, ":") {
		return nil, fmt.Errorf("failed to parse address '%s': %w", address, data.ErrMalformedBackendAddress)
	}
	// Special 'direct no address declarations'
	switch address {
	case ":ephemeral:", ":memory:":
		return &Address{Protocol: ProtocolEphemeral, Raw: address}, nil
	}
	// Protocol-based parsing
	switch {
	// sqlite://<path>, sqlite://:memory:
	case strings.HasPrefix(address, "sqlite://"):
		return parseSqliteAddress(address, strings.TrimPrefix(address, "sqlite://"))
	// postgres://<user>:<password>@<address>:<port>/<database>?<sslmode>
	case strings.HasPrefix(address, "postgres://"),
		strings.HasPrefix(address, "postgresql://"):
		return parseURLAddress(ProtocolPostgres, address, address)
	case strings.HasPrefix(address, "psql://"):
		return parseURLAddress(ProtocolPostgres, address, "postgres://"+strings.TrimPrefix(address, "psql://"))
	// s3://<access_key>:<secret_key>@<address>:<port>?<ssl>&<internal>&<company>
	case strings.HasPrefix(address, "s3://"):
		return parseURLAddress(ProtocolS3, address, address)
	case strings.HasPrefix(address, "minio://"):
		return parseURLAddress(ProtocolS3, address, "s3://"+strings.TrimPrefix(address, "minio://"))
	// consul://<address>:<port>?<token>&<datacenter>&<prefix>
	case strings.HasPrefix(address, "consul://"):
		return parseURLAddress(ProtocolConsul, address, address)
	}

	return nil, fmt.Errorf("failed to parse address '%s': %w", address, data.ErrUnknownBackendProtocol)
}

func parseSqliteAddress(raw, rest string) (*Address, error) {
	path, query, _ := strings.Cut(rest, "?")
	if path == "" {
		return nil, fmt.Errorf("failed to parse address '%s': missing database path: %w", raw, data.ErrMalformedBackendAddress)
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address '%s': %w", raw, data.ErrMalformedBackendAddress)
	}

	return &Address{
		Protocol: ProtocolSqlite,
		Raw:      raw,
		Path:     path,
		Params:   params,
	}, nil
}

func parseURLAddress(protocol, raw, normalized string) (*Address, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address '%s': %v: %w", raw, err, data.ErrMalformedBackendAddress)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("failed to parse address '%s': missing host: %w", raw, data.ErrMalformedBackendAddress)
	}

	addr := &Address{
		Protocol: protocol,
		Raw:      normalized,
		Host:     u.Host,
		Path:     strings.TrimPrefix(u.Path, "/"),
		Params:   u.Query(),
	}
	if u.User != nil {
		addr.Username = u.User.Username()
		addr.Password, _ = u.User.Password()
	}

	return addr, nil
}

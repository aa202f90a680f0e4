package mcp

// Method is the closed set of wire methods the dispatcher understands.
type Method int

const (
	MethodUnknown Method = iota
	MethodInitialize
	MethodInitialized
	MethodPing
	MethodResourcesList
	MethodResourcesRead
	MethodToolsList
	MethodToolsCall
)

var methodNames = map[string]Method{
	"initialize":                MethodInitialize,
	"notifications/initialized": MethodInitialized,
	"ping":                      MethodPing,
	"resources/list":            MethodResourcesList,
	"resources/read":            MethodResourcesRead,
	"tools/list":                MethodToolsList,
	"tools/call":                MethodToolsCall,
}

// ParseMethod maps a wire name onto Method; anything unlisted is MethodUnknown.
func ParseMethod(name string) Method {
	return methodNames[name]
}

func (m Method) String() string {
	for name, v := range methodNames {
		if v == m {
			return name
		}
	}
	return "unknown"
}

// gated reports whether m touches tools or resources, which a strict server
// refuses before the handshake is acknowledged.
func (m Method) gated() bool {
	switch m {
	case MethodResourcesList, MethodResourcesRead, MethodToolsList, MethodToolsCall:
		return true
	default:
		return false
	}
}

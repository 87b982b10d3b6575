package translator

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DetectProtocol implements spec.md §4.3's detection algorithm in order:
// JSON-RPC, GraphQL, REST-HTTP (method+url shaped), SOAP (XML), then a
// bare-JSON fallback to REST-HTTP. Returns ("", false) if nothing
// matches.
func DetectProtocol(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}

	var asJSON map[string]interface{}
	isJSON := json.Unmarshal(trimmed, &asJSON) == nil

	if isJSON {
		if _, hasVersion := asJSON["jsonrpc"]; hasVersion {
			if _, hasMethod := asJSON["method"]; hasMethod {
				return ProtocolJSONRPC, true
			}
		}
		if _, hasQuery := asJSON["query"]; hasQuery {
			return ProtocolGraphQL, true
		}
		if _, hasMutation := asJSON["mutation"]; hasMutation {
			return ProtocolGraphQL, true
		}
		if _, hasMethod := asJSON["method"]; hasMethod {
			if _, hasURL := asJSON["url"]; hasURL {
				return ProtocolREST, true
			}
		}
	}

	upper := strings.TrimSpace(string(trimmed))
	if strings.HasPrefix(upper, "<?xml") || strings.Contains(strings.ToLower(upper), "<soap:") {
		return ProtocolSOAP, true
	}

	if isJSON {
		return ProtocolREST, true
	}

	return "", false
}

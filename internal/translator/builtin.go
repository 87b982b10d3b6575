package translator

import "fmt"

// builtinConverter transforms a parsed source payload directly into a
// target-protocol payload. Used when no translation rule matches the
// (from, to) pair.
type builtinConverter func(payload map[string]interface{}) (map[string]interface{}, error)

// builtinKey identifies a (from, to) pair for the built-in converter
// table.
type builtinKey struct{ from, to string }

var builtinConverters = map[builtinKey]builtinConverter{
	{ProtocolJSONRPC, ProtocolREST}: jsonrpcToREST,
	{ProtocolREST, ProtocolJSONRPC}: restToJSONRPC,

	{ProtocolJSONRPC, ProtocolGRPC}: jsonrpcToGRPC,
	{ProtocolGRPC, ProtocolJSONRPC}: grpcToJSONRPC,

	{ProtocolREST, ProtocolSOAP}: restToSOAP,
	{ProtocolSOAP, ProtocolREST}: soapToREST,

	{ProtocolWebSocket, ProtocolREST}: identity,
	{ProtocolREST, ProtocolWebSocket}: identity,
}

func identity(payload map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out, nil
}

// jsonrpcToREST converts {"jsonrpc","method","params","id"} into
// {"method","url","headers","body"}, matching spec.md scenario 4: the
// JSON-RPC method name becomes both the REST "method" field and a
// "/api/v1/<method>" URL, with params round-tripped as the body.
func jsonrpcToREST(payload map[string]interface{}) (map[string]interface{}, error) {
	method, _ := payload["method"].(string)
	if method == "" {
		return nil, fmt.Errorf("jsonrpc payload missing method")
	}
	params, _ := payload["params"].(map[string]interface{})
	return map[string]interface{}{
		"method": method,
		"url":    "/api/v1/" + method,
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
		},
		"body": params,
	}, nil
}

// restToJSONRPC is jsonrpcToREST's inverse: the REST "method" field (or
// the URL's last path segment) becomes the JSON-RPC method name, "body"
// becomes "params".
func restToJSONRPC(payload map[string]interface{}) (map[string]interface{}, error) {
	method, _ := payload["method"].(string)
	if method == "" {
		if url, ok := payload["url"].(string); ok {
			method = lastPathSegment(url)
		}
	}
	if method == "" {
		return nil, fmt.Errorf("rest payload has no derivable method")
	}
	body, _ := payload["body"].(map[string]interface{})
	out := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  body,
	}
	if id, ok := payload["id"]; ok {
		out["id"] = id
	}
	return out, nil
}

func lastPathSegment(url string) string {
	last := url
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			last = url[i+1:]
			break
		}
	}
	return last
}

// jsonrpcToGRPC reshapes a JSON-RPC call into a gRPC-shaped envelope:
// {"service_method", "request", "metadata"}.
func jsonrpcToGRPC(payload map[string]interface{}) (map[string]interface{}, error) {
	method, _ := payload["method"].(string)
	if method == "" {
		return nil, fmt.Errorf("jsonrpc payload missing method")
	}
	params, _ := payload["params"].(map[string]interface{})
	return map[string]interface{}{
		"service_method": method,
		"request":        params,
		"metadata":       map[string]interface{}{},
	}, nil
}

// grpcToJSONRPC is jsonrpcToGRPC's inverse.
func grpcToJSONRPC(payload map[string]interface{}) (map[string]interface{}, error) {
	method, _ := payload["service_method"].(string)
	if method == "" {
		return nil, fmt.Errorf("grpc payload missing service_method")
	}
	req, _ := payload["request"].(map[string]interface{})
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  req,
	}, nil
}

// restToSOAP wraps a REST body in a minimal SOAP envelope shape
// (represented as neutral JSON, not literal XML, matching this
// package's "neutral JSON form" contract).
func restToSOAP(payload map[string]interface{}) (map[string]interface{}, error) {
	body, _ := payload["body"].(map[string]interface{})
	return map[string]interface{}{
		"envelope": map[string]interface{}{
			"header": map[string]interface{}{},
			"body":   body,
		},
	}, nil
}

// soapToREST unwraps a SOAP envelope back into a REST-shaped payload.
func soapToREST(payload map[string]interface{}) (map[string]interface{}, error) {
	envelope, ok := payload["envelope"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("soap payload missing envelope")
	}
	body, _ := envelope["body"].(map[string]interface{})
	return map[string]interface{}{
		"method": "POST",
		"url":    "/api/v1/soap",
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
		},
		"body": body,
	}, nil
}

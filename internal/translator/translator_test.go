package translator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProtocol(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"jsonrpc", `{"jsonrpc":"2.0","method":"orders.create","id":"7"}`, ProtocolJSONRPC, true},
		{"graphql_query", `{"query":"{ orders { id } }"}`, ProtocolGraphQL, true},
		{"rest", `{"method":"POST","url":"/x"}`, ProtocolREST, true},
		{"soap", `<?xml version="1.0"?><soap:Envelope></soap:Envelope>`, ProtocolSOAP, true},
		{"bare_json_defaults_rest", `{"foo":"bar"}`, ProtocolREST, true},
		{"garbage", `not json at all`, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := DetectProtocol([]byte(c.raw))
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestTranslateMessage_JSONRPCToREST(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	raw := []byte(`{"jsonrpc":"2.0","method":"orders.create","params":{"sku":"X"},"id":"7"}`)
	header := model.MessageHeader{SourceProtocol: ProtocolJSONRPC}

	outcome := tr.TranslateMessage(context.Background(), raw, header, ProtocolREST)

	require.Equal(t, ResultSuccess, outcome.Result)
	assert.Equal(t, "orders.create", outcome.TranslatedPayload["method"])
	assert.Equal(t, "/api/v1/orders.create", outcome.TranslatedPayload["url"])
	headers, ok := outcome.TranslatedPayload["headers"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "application/json", headers["Content-Type"])
	body, ok := outcome.TranslatedPayload["body"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "X", body["sku"])
}

func TestTranslateMessage_RoundTripBuiltinPairs(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	raw := []byte(`{"jsonrpc":"2.0","method":"orders.create","params":{"sku":"X"}}`)
	header := model.MessageHeader{SourceProtocol: ProtocolJSONRPC}

	toREST := tr.TranslateMessage(context.Background(), raw, header, ProtocolREST)
	require.Equal(t, ResultSuccess, toREST.Result)

	restRaw, err := json.Marshal(toREST.TranslatedPayload)
	require.NoError(t, err)
	backHeader := model.MessageHeader{SourceProtocol: ProtocolREST}
	toRPC := tr.TranslateMessage(context.Background(), restRaw, backHeader, ProtocolJSONRPC)
	require.Equal(t, ResultSuccess, toRPC.Result)
	assert.Equal(t, "orders.create", toRPC.TranslatedPayload["method"])
	params, ok := toRPC.TranslatedPayload["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "X", params["sku"])
}

func TestTranslateMessage_SameProtocolIsUnchanged(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	raw := []byte(`{"foo":"bar"}`)
	header := model.MessageHeader{SourceProtocol: ProtocolREST}
	outcome := tr.TranslateMessage(context.Background(), raw, header, ProtocolREST)
	require.Equal(t, ResultSuccess, outcome.Result)
	assert.Equal(t, "bar", outcome.TranslatedPayload["foo"])
}

func TestTranslateMessage_UnsupportedPairWithoutRule(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	raw := []byte(`{"query":"{ orders { id } }"}`)
	header := model.MessageHeader{SourceProtocol: ProtocolGraphQL}
	outcome := tr.TranslateMessage(context.Background(), raw, header, ProtocolSOAP)
	assert.Equal(t, ResultUnsupported, outcome.Result)
	assert.NotEmpty(t, outcome.Errors)
}

func TestTranslateMessage_RuleTakesPriorityOverBuiltin(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	require.NoError(t, tr.AddTranslationRule(context.Background(), model.TranslationRule{
		ID: "rule1", FromProtocol: ProtocolJSONRPC, ToProtocol: ProtocolREST,
		Priority: 10, Active: true,
		TransformationSpec: model.TransformationSpec{
			FieldMappings: map[string]string{"method": "operation"},
		},
	}))

	raw := []byte(`{"jsonrpc":"2.0","method":"orders.create","params":{}}`)
	header := model.MessageHeader{SourceProtocol: ProtocolJSONRPC}
	outcome := tr.TranslateMessage(context.Background(), raw, header, ProtocolREST)
	require.Equal(t, ResultSuccess, outcome.Result)
	assert.Equal(t, "orders.create", outcome.TranslatedPayload["operation"])
	_, hasMethod := outcome.TranslatedPayload["method"]
	assert.False(t, hasMethod)
}

func TestTranslateBatch_BoundedByMaxBatchSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 1
	tr := New(cfg, nil, nil, nil)

	items := []BatchItem{
		{Raw: []byte(`{"jsonrpc":"2.0","method":"a","params":{}}`), Header: model.MessageHeader{SourceProtocol: ProtocolJSONRPC}, TargetProtocol: ProtocolREST},
		{Raw: []byte(`{"jsonrpc":"2.0","method":"b","params":{}}`), Header: model.MessageHeader{SourceProtocol: ProtocolJSONRPC}, TargetProtocol: ProtocolREST},
	}
	out := tr.TranslateBatch(context.Background(), items)
	require.Len(t, out, 2)
	assert.Equal(t, ResultSuccess, out[0].Result)
	assert.Equal(t, ResultFailure, out[1].Result)
}

func TestBestRuleFor_BidirectionalMatchesEitherDirection(t *testing.T) {
	tr := New(DefaultConfig(), nil, nil, nil)
	require.NoError(t, tr.AddTranslationRule(context.Background(), model.TranslationRule{
		ID: "bidi", FromProtocol: ProtocolREST, ToProtocol: ProtocolSOAP,
		Bidirectional: true, Priority: 1, Active: true,
	}))
	_, ok := tr.bestRuleFor(ProtocolSOAP, ProtocolREST)
	assert.True(t, ok)
}

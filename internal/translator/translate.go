package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// TranslateMessage implements spec.md §4.3's translation algorithm:
// resolve the source protocol, short-circuit identical source/target,
// parse to a neutral form, apply the highest-priority matching
// translation rule or fall back to a built-in pairwise converter, and
// build the translated header. A translation still running when
// cfg.TranslationTimeout expires returns FAILURE.
func (t *Translator) TranslateMessage(ctx context.Context, raw []byte, header model.MessageHeader, targetProtocol string) TranslationOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, t.cfg.TranslationTimeout)
	defer cancel()

	ch := make(chan TranslationOutcome, 1)
	go func() { ch <- t.translateMessageInner(ctx, raw, header, targetProtocol) }()

	var outcome TranslationOutcome
	select {
	case outcome = <-ch:
	case <-ctx.Done():
		outcome = TranslationOutcome{Result: ResultFailure, Errors: []string{"translation timed out"}}
	}
	outcome.ProcessingTimeMs = time.Since(start).Milliseconds()

	if t.m != nil {
		t.m.TranslationsTotal.WithLabelValues(header.SourceProtocol, targetProtocol, string(outcome.Result)).Inc()
	}
	return outcome
}

func (t *Translator) translateMessageInner(ctx context.Context, raw []byte, header model.MessageHeader, targetProtocol string) TranslationOutcome {
	sourceProtocol := header.SourceProtocol
	if sourceProtocol == "" {
		detected, ok := DetectProtocol(raw)
		if !ok {
			return TranslationOutcome{
				Result: ResultFailure,
				Errors: []string{"could not detect source protocol"},
			}
		}
		sourceProtocol = detected
	}

	translatedHeader := translateHeader(header, sourceProtocol, targetProtocol)

	if sourceProtocol == targetProtocol {
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return TranslationOutcome{Result: ResultFailure, TranslatedHeader: translatedHeader, Errors: []string{"parse failure: " + err.Error()}}
		}
		return TranslationOutcome{Result: ResultSuccess, TranslatedPayload: payload, TranslatedHeader: translatedHeader}
	}

	source, err := parseToNeutral(raw, sourceProtocol)
	if err != nil {
		return TranslationOutcome{Result: ResultFailure, TranslatedHeader: translatedHeader, Errors: []string{"parse failure: " + err.Error()}}
	}

	if t.cfg.ValidateSchemas {
		if missing := t.ValidateAgainstSchema(sourceProtocol, source); len(missing) > 0 {
			return TranslationOutcome{Result: ResultFailure, TranslatedHeader: translatedHeader, Errors: missing}
		}
	}

	var (
		translated map[string]interface{}
		warnings   []string
	)

	if rule, ok := t.bestRuleFor(sourceProtocol, targetProtocol); ok {
		translated, err = applyTransformation(source, rule.TransformationSpec)
		if err != nil {
			return TranslationOutcome{Result: ResultFailure, TranslatedHeader: translatedHeader, Errors: []string{"transformation failed: " + err.Error()}}
		}
	} else {
		converter, ok := builtinConverters[builtinKey{sourceProtocol, targetProtocol}]
		if !ok {
			return TranslationOutcome{Result: ResultUnsupported, TranslatedHeader: translatedHeader, Errors: []string{fmt.Sprintf("no rule or built-in converter for %s -> %s", sourceProtocol, targetProtocol)}}
		}
		translated, err = converter(source)
		if err != nil {
			return TranslationOutcome{Result: ResultFailure, TranslatedHeader: translatedHeader, Errors: []string{"built-in conversion failed: " + err.Error()}}
		}
	}

	if t.cfg.ValidateSchemas {
		if missing := t.ValidateAgainstSchema(targetProtocol, translated); len(missing) > 0 {
			warnings = append(warnings, missing...)
			return TranslationOutcome{Result: ResultPartialSuccess, TranslatedPayload: translated, TranslatedHeader: translatedHeader, Warnings: warnings}
		}
	}

	return TranslationOutcome{Result: ResultSuccess, TranslatedPayload: translated, TranslatedHeader: translatedHeader}
}

// BatchItem is one message within a TranslateBatch call.
type BatchItem struct {
	Raw            []byte
	Header         model.MessageHeader
	TargetProtocol string
}

// TranslateBatch runs TranslateMessage over every item, up to
// cfg.MaxBatchSize; items beyond the cap are reported as failures rather
// than silently dropped.
func (t *Translator) TranslateBatch(ctx context.Context, items []BatchItem) []TranslationOutcome {
	out := make([]TranslationOutcome, 0, len(items))
	for i, item := range items {
		if i >= t.cfg.MaxBatchSize {
			out = append(out, TranslationOutcome{
				Result: ResultFailure,
				Errors: []string{fmt.Sprintf("batch item %d exceeds max batch size %d", i, t.cfg.MaxBatchSize)},
			})
			continue
		}
		out = append(out, t.TranslateMessage(ctx, item.Raw, item.Header, item.TargetProtocol))
	}
	return out
}

// translateHeader preserves correlation identity while updating protocol
// and timestamp, per spec.md §4.3's header-translation rule.
func translateHeader(header model.MessageHeader, sourceProtocol, targetProtocol string) model.MessageHeader {
	out := header
	out.SourceProtocol = sourceProtocol
	out.TargetProtocol = targetProtocol
	out.Timestamp = time.Now()
	if out.CustomHeaders == nil {
		out.CustomHeaders = make(map[string]string)
	}
	out.CustomHeaders["X-Protocol-Target"] = targetProtocol
	return out
}

// parseToNeutral unmarshals raw into a generic map for every protocol
// this package handles. SOAP's "XML" is, for this platform, itself a
// JSON envelope shape (spec.md treats the wire-level XML/TLS handshake
// as a transport concern out of scope); a non-JSON SOAP payload is
// represented as a single opaque "raw_xml" field.
func parseToNeutral(raw []byte, protocol string) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err == nil {
		return payload, nil
	}
	if protocol == ProtocolSOAP {
		return map[string]interface{}{"raw_xml": string(raw)}, nil
	}
	return nil, fmt.Errorf("payload is not valid JSON")
}

// applyTransformation renames fields per field_mappings (old key removed,
// new key written) then applies each value_transformations operation.
func applyTransformation(source map[string]interface{}, spec model.TransformationSpec) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(source))
	for k, v := range source {
		out[k] = v
	}

	for oldKey, newKey := range spec.FieldMappings {
		if v, ok := out[oldKey]; ok {
			delete(out, oldKey)
			out[newKey] = v
		}
	}

	for field, op := range spec.ValueTransformations {
		v, ok := out[field]
		if !ok {
			continue
		}
		str, isStr := v.(string)
		if !isStr {
			continue
		}
		switch op {
		case "uppercase":
			out[field] = toUpper(str)
		case "lowercase":
			out[field] = toLower(str)
		default:
			return nil, fmt.Errorf("unknown value transformation %q for field %q", op, field)
		}
	}

	return out, nil
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

package taskcache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/jonwraymond/pipecache/artifact"
)

// StoredValue is the decoded form of one cached artifact projection:
// arbitrary projected properties plus the reserved bookkeeping fields
// stamped at encode time.
type StoredValue map[string]any

// Reserved bookkeeping keys in a stored value.
const (
	// KeyOriginalPath is the path of the corresponding input artifact at
	// store time.
	KeyOriginalPath = "originalPath"

	// KeyPathChanged marks that the task produced an output path different
	// from the input path.
	KeyPathChanged = "pathChangedInsideTask"
)

// extractValue produces the cacheable projection of the task's outputs per
// the resolved configuration. A nil result means nothing is cached for this
// run.
func extractValue(ctx context.Context, cfg Config, outputs []*artifact.Artifact) (any, error) {
	if cfg.Value != nil {
		return cfg.Value(ctx, outputs)
	}
	if cfg.ValueProp == "" {
		return nil, nil
	}
	if cfg.Many {
		vals := make([]StoredValue, len(outputs))
		for i, o := range outputs {
			vals[i] = projectProp(o, cfg.ValueProp)
		}
		return vals, nil
	}
	if len(outputs) == 0 {
		return nil, nil
	}
	return projectProp(outputs[0], cfg.ValueProp), nil
}

func projectProp(a *artifact.Artifact, prop string) StoredValue {
	v, ok := a.Prop(prop)
	if !ok {
		return StoredValue{}
	}
	return StoredValue{prop: v}
}

// encodeValue converts an extracted value into its stored wire form. A raw
// string (or byte slice) is stored verbatim; everything else is
// shallow-copied, has binary contents converted to base64 text, is stamped
// with originalPath and pathChangedInsideTask where applicable, and is
// serialized as JSON. Batch values are stamped element-wise against the
// input and output at the same position.
func encodeValue(value any, inputs, outputs []*artifact.Artifact, many bool) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}

	if many {
		vals, err := toStoredValues(value)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			stampValue(vals[i], at(inputs, i), at(outputs, i))
		}
		return json.Marshal(vals)
	}

	sv, err := toStoredValue(value)
	if err != nil {
		return nil, err
	}
	stampValue(sv, at(inputs, 0), at(outputs, 0))
	return json.Marshal(sv)
}

func toStoredValue(value any) (StoredValue, error) {
	switch v := value.(type) {
	case StoredValue:
		return maps.Clone(v), nil
	case map[string]any:
		return maps.Clone(map[string]any(v)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}

func toStoredValues(value any) ([]StoredValue, error) {
	switch v := value.(type) {
	case []StoredValue:
		out := make([]StoredValue, len(v))
		for i, sv := range v {
			out[i] = maps.Clone(sv)
		}
		return out, nil
	case []map[string]any:
		out := make([]StoredValue, len(v))
		for i, sv := range v {
			out[i] = maps.Clone(map[string]any(sv))
		}
		return out, nil
	case []any:
		out := make([]StoredValue, len(v))
		for i, e := range v {
			sv, err := toStoredValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}

// stampValue converts binary contents to text and records the bookkeeping
// fields reconstruction relies on.
func stampValue(sv StoredValue, in, out *artifact.Artifact) {
	if c, ok := sv[artifact.PropContents].([]byte); ok {
		sv[artifact.PropContents] = base64.StdEncoding.EncodeToString(c)
	}
	if in == nil {
		return
	}
	sv[KeyOriginalPath] = in.Path
	if out != nil && out.Path != in.Path {
		sv[KeyPathChanged] = true
		sv[artifact.PropPath] = out.Path
	}
}

func at(artifacts []*artifact.Artifact, i int) *artifact.Artifact {
	if i < 0 || i >= len(artifacts) {
		return nil
	}
	return artifacts[i]
}

// decodeStored parses a stored payload. A payload that is not structured
// text is tolerated as opaque contents rather than rejected, so raw-string
// values written by encodeValue round-trip.
func decodeStored(raw []byte, many bool) []StoredValue {
	if many {
		var vals []StoredValue
		if err := json.Unmarshal(raw, &vals); err == nil {
			for _, sv := range vals {
				normalizeValue(sv)
			}
			return vals
		}
	} else {
		var sv StoredValue
		if err := json.Unmarshal(raw, &sv); err == nil {
			normalizeValue(sv)
			return []StoredValue{sv}
		}
	}
	// Opaque payload: wrap it in a minimal structure.
	return []StoredValue{{artifact.PropContents: append([]byte(nil), raw...)}}
}

func normalizeValue(sv StoredValue) {
	if c, ok := sv[artifact.PropContents]; ok {
		sv[artifact.PropContents] = normalizeContents(c)
	}
}

// normalizeContents reverses the text encoding of a stored content field.
// Three historical shapes are accepted at this boundary only: raw bytes, a
// list of byte values, and base64 text. Text that does not parse as base64
// is kept as literal bytes.
func normalizeContents(v any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case []byte:
		return c
	case string:
		if b, err := base64.StdEncoding.DecodeString(c); err == nil {
			return b
		}
		return []byte(c)
	case []any:
		b := make([]byte, len(c))
		for i, e := range c {
			f, ok := e.(float64)
			if !ok {
				return v
			}
			b[i] = byte(f)
		}
		return b
	}
	return v
}

// restoreArtifacts builds fresh artifacts from stored values, trusting them
// verbatim. This is the many-to-many hit path.
func restoreArtifacts(values []StoredValue) []*artifact.Artifact {
	outs := make([]*artifact.Artifact, len(values))
	for i, sv := range values {
		outs[i] = restoreArtifact(sv)
	}
	return outs
}

// reconcileHit applies a stored value to the current input artifact, the
// one-to-one hit path. It returns ok=false when the stored result does not
// apply to this input: the task changed the path when the entry was stored
// and the entry was stored for a different input path. The caller then
// falls through to re-running the task instead of returning a mismatched
// result.
//
// Otherwise the stored value is merged onto a clone of the input, excluding
// structural fields, and the path is overwritten to the stored one when the
// task legitimately changed it.
func reconcileHit(input *artifact.Artifact, sv StoredValue) (*artifact.Artifact, bool) {
	storedPath, _ := sv[artifact.PropPath].(string)
	origPath, _ := sv[KeyOriginalPath].(string)
	changed, _ := sv[KeyPathChanged].(bool)

	if storedPath != "" && storedPath != input.Path && changed && origPath != input.Path {
		return nil, false
	}

	merged := input.Clone()
	for k, v := range sv {
		switch {
		case k == KeyOriginalPath || k == KeyPathChanged:
			// bookkeeping, not artifact state
		case k == artifact.PropContents:
			if b, ok := normalizeContents(v).([]byte); ok {
				merged.Contents = b
			}
		case artifact.IsStructural(k):
			// The input's own location fields win; the stored path is
			// applied below only when the task changed it.
		default:
			merged.SetProp(k, v)
		}
	}
	if changed && storedPath != "" {
		merged.SetPath(storedPath)
	}
	return merged, true
}

func restoreArtifact(sv StoredValue) *artifact.Artifact {
	a := &artifact.Artifact{}

	// Path first, deterministically: the original input path, then the
	// task-produced path on top when the task renamed the artifact.
	if s, ok := sv[KeyOriginalPath].(string); ok {
		a.SetPath(s)
	}
	if s, ok := sv[artifact.PropPath].(string); ok {
		a.SetPath(s)
	}

	for k, v := range sv {
		switch k {
		case artifact.PropPath, KeyOriginalPath, KeyPathChanged:
			// handled above; pathChangedInsideTask is bookkeeping only
		case artifact.PropContents:
			if b, ok := normalizeContents(v).([]byte); ok {
				a.Contents = b
			}
		case artifact.PropBase:
			if s, ok := v.(string); ok {
				a.Base = s
			}
		case artifact.PropCwd:
			if s, ok := v.(string); ok {
				a.Cwd = s
			}
		default:
			a.SetProp(k, v)
		}
	}
	return a
}

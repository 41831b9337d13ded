package mcp

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// argumentGetter is satisfied by mcp.CallToolRequest.
type argumentGetter interface {
	GetArguments() map[string]any
}

// bindArguments decodes tool arguments into target using json tags. Some
// clients send every value as a string, so JSON-looking strings are decoded
// for slice, map and bool fields; weak typing covers numbers.
func bindArguments[T any](request argumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringEncodedJSONHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

func stringEncodedJSONHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Slice, reflect.Map:
		if !(strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")) &&
			!(strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}")) {
			return data, nil
		}
		ptr := reflect.New(to)
		if err := json.Unmarshal([]byte(raw), ptr.Interface()); err == nil {
			return ptr.Elem().Interface(), nil
		}
	case reflect.Bool:
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
	}
	return data, nil
}

// clamp bounds n to [lo, hi], using def when n is zero.
func clamp(n, def, lo, hi int) int {
	if n == 0 {
		n = def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

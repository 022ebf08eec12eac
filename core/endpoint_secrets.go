package core

import "fmt"

// EncryptEndpoints returns a copy of endpoints whose static Headers and Params
// went through cipher.EncryptConfig. Only sensitive keys change.
func EncryptEndpoints(cipher ConfigCipher, endpoints []EndpointSpec) ([]EndpointSpec, error) {
	if cipher == nil {
		return endpoints, nil
	}
	return mapEndpointValues(endpoints, cipher.EncryptConfig)
}

func DecryptEndpoints(cipher ConfigCipher, endpoints []EndpointSpec) []EndpointSpec {
	if cipher == nil {
		return endpoints
	}
	out, _ := mapEndpointValues(endpoints, func(values map[string]any) (map[string]any, error) {
		return cipher.DecryptConfig(values), nil
	})
	return out
}

// MaskEndpoints decrypts then masks endpoint values for display.
func MaskEndpoints(cipher ConfigCipher, endpoints []EndpointSpec) []EndpointSpec {
	if cipher == nil {
		return endpoints
	}
	out, _ := mapEndpointValues(endpoints, func(values map[string]any) (map[string]any, error) {
		return cipher.MaskConfig(cipher.DecryptConfig(values)), nil
	})
	return out
}

func mapEndpointValues(endpoints []EndpointSpec, fn func(map[string]any) (map[string]any, error)) ([]EndpointSpec, error) {
	if endpoints == nil {
		return nil, nil
	}
	out := make([]EndpointSpec, len(endpoints))
	for i, endpoint := range endpoints {
		headers, err := mapStringValues(endpoint.Headers, fn)
		if err != nil {
			return nil, err
		}
		params, err := mapStringValues(endpoint.Params, fn)
		if err != nil {
			return nil, err
		}
		endpoint.Headers = headers
		endpoint.Params = params
		out[i] = endpoint
	}
	return out, nil
}

func mapStringValues(values map[string]string, fn func(map[string]any) (map[string]any, error)) (map[string]string, error) {
	if len(values) == 0 {
		return values, nil
	}
	in := make(map[string]any, len(values))
	for key, value := range values {
		in[key] = value
	}
	mapped, err := fn(in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(mapped))
	for key, value := range mapped {
		if text, ok := value.(string); ok {
			out[key] = text
			continue
		}
		out[key] = fmt.Sprint(value)
	}
	return out, nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/poiesic/nameres/resolve"
)

const maxBodyBytes = 1 << 20

// Lookup parameter names.
const (
	paramString          = "string"
	paramAutocomplete    = "autocomplete"
	paramOffset          = "offset"
	paramLimit           = "limit"
	paramBiolinkType     = "biolink_type"
	paramOnlyPrefixes    = "only_prefixes"
	paramExcludePrefixes = "exclude_prefixes"
)

// lookupParams collects the raw parameters of a lookup request. URL query
// values come first; form or JSON body values replace them key by key.
func lookupParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	values := r.URL.Query()
	if r.Method != http.MethodPost || r.Body == nil {
		return values, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		body, err := jsonParams(r.Body)
		if err != nil {
			return nil, err
		}
		for key, v := range body {
			values[key] = v
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: form body: %v", ErrInvalidParameter, err)
		}
		for key, v := range r.PostForm {
			values[key] = v
		}
	}
	return values, nil
}

// jsonParams flattens a JSON object body into string values. Prefix lists
// may be given as arrays and are joined with "|".
func jsonParams(body io.Reader) (url.Values, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return url.Values{}, nil
		}
		return nil, fmt.Errorf("%w: JSON body: %v", ErrInvalidParameter, err)
	}

	values := make(url.Values, len(raw))
	for key, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			values.Set(key, v)
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidParameter, key)
				}
				parts = append(parts, s)
			}
			values.Set(key, strings.Join(parts, "|"))
		default:
			return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidParameter, key, v)
		}
	}
	return values, nil
}

// parseQuery builds and validates a resolve.Query from request values.
func parseQuery(values url.Values) (resolve.Query, error) {
	if !values.Has(paramString) {
		return resolve.Query{}, fmt.Errorf("%w: %s", ErrMissingParameter, paramString)
	}
	text := values.Get(paramString)
	if strings.TrimSpace(text) == "" {
		return resolve.Query{}, fmt.Errorf("%w: %s must not be blank", ErrInvalidParameter, paramString)
	}

	q := resolve.NewQuery(text)

	if s := values.Get(paramAutocomplete); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return resolve.Query{}, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidParameter, paramAutocomplete, s)
		}
		q.Autocomplete = b
	}

	var err error
	if q.Offset, err = intParam(values, paramOffset, 0); err != nil {
		return resolve.Query{}, err
	}
	if q.Limit, err = intParam(values, paramLimit, resolve.DefaultLimit); err != nil {
		return resolve.Query{}, err
	}

	q.BiolinkType = strings.TrimSpace(values.Get(paramBiolinkType))
	q.OnlyPrefixes = resolve.ParsePrefixes(values.Get(paramOnlyPrefixes))
	q.ExcludePrefixes = resolve.ParsePrefixes(values.Get(paramExcludePrefixes))

	if err := q.Validate(); err != nil {
		return resolve.Query{}, err
	}
	return q, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(values.Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParameter, name, s)
	}
	return n, nil
}

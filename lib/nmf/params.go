//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package nmf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultParams of code learning.
const DefaultParams = "max_iter:1000"

// ErrParam is returned for malformed or unknown parameters.
var ErrParam = errors.New("invalid parameter")

// ParseParams parses "key:value,key:value". Values are typed int, then float64, else string.
func ParseParams(s string) (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if strings.TrimSpace(s) == "" {
		return params, nil
	}
	for _, kv := range strings.Split(s, ",") {
		f := strings.SplitN(kv, ":", 2)
		if len(f) != 2 || f[0] == "" {
			return nil, errors.Wrapf(ErrParam, "%q", kv)
		}
		key, raw := strings.TrimSpace(f[0]), strings.TrimSpace(f[1])
		if v, err := strconv.Atoi(raw); err == nil {
			params[key] = v
		} else if v, err := strconv.ParseFloat(raw, 64); err == nil {
			params[key] = v
		} else {
			params[key] = raw
		}
	}
	return params, nil
}

func toFloat(key string, v interface{}) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, errors.Wrapf(ErrParam, "%s: %v is not a number", key, v)
}

func toInt(key string, v interface{}) (int, error) {
	if t, ok := v.(int); ok {
		return t, nil
	}
	return 0, errors.Wrapf(ErrParam, "%s: %v is not an integer", key, v)
}

// Apply sets the fields of pg from params: max_iter, tol, nls_max_iter, random_state, init,
// sparseness, beta and eta.
func (pg *ProjectedGradient) Apply(params map[string]interface{}) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := params[k]
		var err error
		switch k {
		case "max_iter":
			pg.MaxIter, err = toInt(k, v)
		case "nls_max_iter":
			pg.Limit, err = toInt(k, v)
		case "tol":
			pg.Tol, err = toFloat(k, v)
		case "random_state":
			var seed int
			seed, err = toInt(k, v)
			pg.Seed = uint64(seed)
		case "init":
			name, ok := v.(string)
			if !ok {
				err = errors.Wrapf(ErrParam, "%s: %v is not a name", k, v)
				break
			}
			pg.Init, err = ParseInit(name)
		case "sparseness":
			name, ok := v.(string)
			if !ok {
				err = errors.Wrapf(ErrParam, "%s: %v is not a name", k, v)
				break
			}
			pg.Sparseness, err = ParseSparseness(name)
		case "beta":
			pg.Beta, err = toFloat(k, v)
		case "eta":
			pg.Eta, err = toFloat(k, v)
		default:
			err = errors.Wrapf(ErrParam, "unknown parameter %s", k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package jsapi

import (
	"fmt"

	"github.com/dop251/goja"
)

// requireArgs panics with a JS exception if the call has fewer than n arguments.
func (a *API) requireArgs(call goja.FunctionCall, n int, msg string) {
	if len(call.Arguments) < n {
		panic(a.runtime.ToValue(msg))
	}
}

// toUint64 converts a Goja value to uint64.
// Panics with a JS exception if the value is negative.
func toUint64(vm *goja.Runtime, v goja.Value) uint64 {
	switch val := v.Export().(type) {
	case int64:
		if val < 0 {
			panic(vm.ToValue("value cannot be negative"))
		}
		return uint64(val)
	case float64:
		if val < 0 {
			panic(vm.ToValue("value cannot be negative"))
		}
		return uint64(val)
	case uint64:
		return val
	default:
		i := v.ToInteger()
		if i < 0 {
			panic(vm.ToValue("value cannot be negative"))
		}
		return uint64(i)
	}
}

// toStringArray converts a Goja value to []string.
// Non-string items are converted with their JS string form.
func toStringArray(v goja.Value) []string {
	exported := v.Export()
	switch arr := exported.(type) {
	case []interface{}:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			} else if item != nil {
				result = append(result, fmt.Sprint(item))
			}
		}
		return result
	case []string:
		return arr
	default:
		return nil
	}
}

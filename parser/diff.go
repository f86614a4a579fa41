package parser

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/ntfsmon/json"
)

const DIFF_REMOVED = "removed"

// DiffSnapshots compares two snapshots in their JSON form. The result
// maps the dotted path of every changed leaf to one of:
//
//	{"before": old, "after": new}
//	{"created": new}
//	"removed"
//
// An empty result means nothing changed.
func DiffSnapshots(before, after interface{}) (*ordereddict.Dict, error) {
	normalized_before, err := json.Normalize(before)
	if err != nil {
		return nil, errors.Wrap(err, "DiffSnapshots: before")
	}

	normalized_after, err := json.Normalize(after)
	if err != nil {
		return nil, errors.Wrap(err, "DiffSnapshots: after")
	}

	STATS.Inc_DiffComputed()

	result := ordereddict.NewDict()
	diffValue("", normalized_before, normalized_after, result)
	return result, nil
}

func joinPath(path, component string) string {
	if path == "" {
		return component
	}
	return path + "." + component
}

func diffValue(path string, before, after interface{}, result *ordereddict.Dict) {
	switch b := before.(type) {
	case map[string]interface{}:
		a, ok := after.(map[string]interface{})
		if ok {
			diffMaps(path, b, a, result)
			return
		}

	case []interface{}:
		a, ok := after.([]interface{})
		if ok {
			diffSlices(path, b, a, result)
			return
		}
	}

	if !reflect.DeepEqual(before, after) {
		result.Set(path, ordereddict.NewDict().
			Set("before", before).
			Set("after", after))
	}
}

func diffMaps(path string, before, after map[string]interface{},
	result *ordereddict.Dict) {
	keys := make([]string, 0, len(before)+len(after))
	for k := range before {
		keys = append(keys, k)
	}
	for k := range after {
		_, pres := before[k]
		if !pres {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		b, in_before := before[k]
		a, in_after := after[k]
		member_path := joinPath(path, k)

		switch {
		case in_before && in_after:
			diffValue(member_path, b, a, result)
		case in_after:
			result.Set(member_path, ordereddict.NewDict().Set("created", a))
		default:
			result.Set(member_path, DIFF_REMOVED)
		}
	}
}

func diffSlices(path string, before, after []interface{},
	result *ordereddict.Dict) {
	for i := 0; i < len(before) || i < len(after); i++ {
		member_path := joinPath(path, fmt.Sprintf("%d", i))

		switch {
		case i < len(before) && i < len(after):
			diffValue(member_path, before[i], after[i], result)
		case i < len(after):
			result.Set(member_path, ordereddict.NewDict().Set("created", after[i]))
		default:
			result.Set(member_path, DIFF_REMOVED)
		}
	}
}

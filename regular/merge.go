package regular

import (
	"errors"
	"strconv"
)

// Merge combines two trees into a new one without modifying either.
//
//   - a null side yields the other side
//   - a placeholder yields to the other side
//   - Optional wrappers are merged through and kept
//   - maps merge key-wise, in target order with new source keys appended
//   - each source list item merges into the first target item that accepts
//     it; an item no target item accepts is appended
//   - any other pair must be Equal, otherwise *MergeConflictError
func Merge(source, target *Value) (*Value, error) {
	return merge(source, target, "$")
}

func merge(src, dst *Value, path string) (*Value, error) {
	switch {
	case src.IsNull():
		return orNull(dst), nil
	case dst.IsNull():
		return src, nil
	}

	if src.Kind() == KindOptional || dst.Kind() == KindOptional {
		inner, err := merge(unwrapOptional(src), unwrapOptional(dst), path)
		if err != nil {
			return nil, err
		}
		return Opt(inner), nil
	}

	srcOpen, dstOpen := IsPlaceholder(src), IsPlaceholder(dst)
	switch {
	case srcOpen && dstOpen:
		if Equal(src, dst) {
			return dst, nil
		}
		return nil, &MergeConflictError{Path: path, Source: src, Target: dst}
	case srcOpen:
		return dst, nil
	case dstOpen:
		return src, nil
	}

	switch {
	case src.Kind() == KindMap && dst.Kind() == KindMap:
		return mergeMaps(src, dst, path)
	case src.Kind() == KindList && dst.Kind() == KindList:
		return mergeLists(src, dst, path)
	}

	if !Equal(src, dst) {
		return nil, &MergeConflictError{Path: path, Source: src, Target: dst}
	}
	return dst, nil
}

func unwrapOptional(v *Value) *Value {
	if v.Kind() == KindOptional {
		return v.inner
	}
	return v
}

func mergeMaps(src, dst *Value, path string) (*Value, error) {
	entries := make([]MapEntry, len(dst.mapVal), len(dst.mapVal)+len(src.mapVal))
	copy(entries, dst.mapVal)
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Key] = i
	}
	for _, e := range src.mapVal {
		i, ok := index[e.Key]
		if !ok {
			index[e.Key] = len(entries)
			entries = append(entries, e)
			continue
		}
		merged, err := merge(e.Value, entries[i].Value, path+"."+e.Key)
		if err != nil {
			return nil, err
		}
		entries[i].Value = merged
	}
	return &Value{kind: KindMap, mapVal: entries}, nil
}

// mergeLists tries each target item in order for every source item and
// keeps the first merge that succeeds.
func mergeLists(src, dst *Value, path string) (*Value, error) {
	items := make([]*Value, len(dst.listVal), len(dst.listVal)+len(src.listVal))
	copy(items, dst.listVal)
	limit := len(items)
	for _, s := range src.listVal {
		placed := false
		for i := 0; i < limit; i++ {
			merged, err := merge(s, items[i], path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				if errors.Is(err, ErrMergeConflict) {
					continue
				}
				return nil, err
			}
			items[i] = merged
			placed = true
			break
		}
		if !placed {
			items = append(items, s)
		}
	}
	return &Value{kind: KindList, listVal: items}, nil
}

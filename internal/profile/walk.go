package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// KeyNotFoundError carries the value at the last key that did resolve.
type KeyNotFoundError struct {
	Key    string
	Parent any
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

func (p Profile) tree() (any, error) {
	var root any
	err := json.Unmarshal(p.Raw, &root)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return root, nil
}

// Walk descends into the raw document following keys, array elements are addressed by index.
func (p Profile) Walk(keys ...string) (any, error) {
	ref, err := p.tree()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		switch node := ref.(type) {
		case map[string]any:
			child, ok := node[key]
			if !ok {
				return nil, &KeyNotFoundError{Key: key, Parent: node}
			}
			ref = child
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, &KeyNotFoundError{Key: key, Parent: node}
			}
			ref = node[idx]
		default:
			return nil, &KeyNotFoundError{Key: key, Parent: node}
		}
	}
	return ref, nil
}

// Keys lists the sorted keys of an object node, ok is false for anything else.
func Keys(node any) (keys []string, ok bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	keys = make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, true
}

// Export writes the raw document indented with sorted keys, it can be read back with Load.
func (p Profile) Export(w io.Writer) error {
	root, err := p.tree()
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(root)
}

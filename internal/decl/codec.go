package decl

import (
	"encoding/json"
	"fmt"
)

// MarshalSubtree serializes the declaration subtree rooted at d into the
// payload format stored in the snapshot database.
func MarshalSubtree(d *Decl) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal decl %q: %w", d.QualifiedName, err)
	}
	return b, nil
}

// UnmarshalSubtree deserializes a stored payload back into a declaration
// subtree.
func UnmarshalSubtree(payload []byte) (*Decl, error) {
	d := &Decl{}
	if err := json.Unmarshal(payload, d); err != nil {
		return nil, fmt.Errorf("unmarshal decl payload: %w", err)
	}
	return d, nil
}

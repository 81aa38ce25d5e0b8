package tenk

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// LoadTable reads a Table written by MarshalTo. The returned table
// uses MaxEstimate.
func LoadTable(r io.Reader) (*Table, error) {
	dec := gob.NewDecoder(r)

	var nStates int
	if err := dec.Decode(&nStates); err != nil {
		return nil, errors.Wrap(err, "decode number of states")
	}

	if nStates < 0 {
		return nil, errors.Errorf("invalid number of states: %d", nStates)
	}

	states := make(map[string]*ActionValues, nStates)
	for i := 0; i < nStates; i++ {
		var key string
		if err := dec.Decode(&key); err != nil {
			return nil, errors.Wrapf(err, "decode state %d", i)
		}

		var av ActionValues
		if err := dec.Decode(&av); err != nil {
			return nil, errors.Wrapf(err, "decode actions of state %q", key)
		}

		if _, ok := states[key]; ok {
			return nil, errors.Errorf("duplicate state %q", key)
		}

		states[key] = &av
	}

	return &Table{
		estimate: MaxEstimate,
		states:   states,
	}, nil
}

// MarshalTo writes the table to w. States are written in sorted order.
func (t *Table) MarshalTo(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(len(t.states)); err != nil {
		return err
	}

	for _, key := range t.sortedStates() {
		if err := enc.Encode(key); err != nil {
			return err
		}

		if err := enc.Encode(t.states[key]); err != nil {
			return err
		}
	}

	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Table) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.MarshalTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The contents of the
// table are replaced only if the whole buffer decodes successfully.
// The table's Estimator is kept.
func (t *Table) UnmarshalBinary(buf []byte) error {
	loaded, err := LoadTable(bytes.NewReader(buf))
	if err != nil {
		return err
	}

	if t.estimate == nil {
		t.estimate = MaxEstimate
	}

	t.states = loaded.states
	return nil
}

type actionValuesGob struct {
	Keys   []string
	Values []float64
}

// GobEncode implements gob.GobEncoder.
func (av *ActionValues) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(actionValuesGob{Keys: av.keys, Values: av.values}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (av *ActionValues) GobDecode(buf []byte) error {
	r := bytes.NewReader(buf)
	dec := gob.NewDecoder(r)

	var v actionValuesGob
	if err := dec.Decode(&v); err != nil {
		return err
	}

	if len(v.Keys) != len(v.Values) {
		return errors.Errorf("corrupt action values: %d keys but %d values", len(v.Keys), len(v.Values))
	}

	index := make(map[string]int, len(v.Keys))
	for i, key := range v.Keys {
		if _, ok := index[key]; ok {
			return errors.Errorf("corrupt action values: duplicate action %q", key)
		}

		index[key] = i
	}

	av.index = index
	av.keys = v.Keys
	av.values = v.Values
	return nil
}

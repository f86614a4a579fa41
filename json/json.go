// Wrap json library to control encoding.

package json

import (
	"bytes"
	"sync"

	"github.com/Velocidex/json"
	"github.com/Velocidex/ordereddict"
)

var (
	mu       sync.Mutex
	handlers = []*encoderHandler{}
)

type encoderHandler struct {
	sample interface{}
	cb     json.EncoderCallback
}

// Callers can register their custom encoders through this
// function. Should be done once from an init() function.
func RegisterCustomEncoder(sample interface{}, cb json.EncoderCallback) {
	mu.Lock()
	defer mu.Unlock()

	handlers = append(handlers, &encoderHandler{sample, cb})
}

func NewEncOpts() *json.EncOpts {
	mu.Lock()
	defer mu.Unlock()

	opts := json.NewEncOpts()
	for _, h := range handlers {
		opts.WithCallback(h.sample, h.cb)
	}
	return opts
}

// Keep the insertion order of ordered dicts.
func MarshalJSONDict(v interface{}, opts *json.EncOpts) ([]byte, error) {
	self, ok := v.(*ordereddict.Dict)
	if !ok {
		return nil, json.EncoderCallbackSkip
	}

	buf := bytes.Buffer{}
	buf.WriteString("{")
	for idx, k := range self.Keys() {
		if idx > 0 {
			buf.WriteString(",")
		}

		k_serialized, err := json.MarshalWithOptions(k, opts)
		if err != nil {
			return nil, err
		}
		buf.Write(k_serialized)
		buf.WriteString(":")

		value, _ := self.Get(k)
		v_serialized, err := json.MarshalWithOptions(value, opts)
		if err != nil {
			buf.WriteString("null")
			continue
		}
		buf.Write(v_serialized)
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func init() {
	RegisterCustomEncoder(ordereddict.NewDict(), MarshalJSONDict)
}

func Marshal(v interface{}) ([]byte, error) {
	return json.MarshalWithOptions(v, NewEncOpts())
}

func MustMarshalString(v interface{}) string {
	result, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(result)
}

func MarshalIndent(v interface{}) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = json.Indent(&buf, b, "", " ")
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}

// Normalize round trips v through its JSON form. Numbers are kept as
// json.Number so large integers survive intact.
func Normalize(v interface{}) (interface{}, error) {
	serialized, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(serialized))
	decoder.UseNumber()

	var result interface{}
	err = decoder.Decode(&result)
	return result, err
}

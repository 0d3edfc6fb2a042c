// Package format renders command output as JSON or EDN.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"olympos.io/encoding/edn"
)

const (
	JSON = "json"
	EDN  = "edn"
)

// Write encodes v in the named format. An empty format means JSON.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	}
	return fmt.Errorf("unknown format %q (want json or edn)", format)
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteEDN writes v as EDN. v goes through its JSON form first so struct
// tags decide the key names; map keys become keywords in sorted order.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	var compact bytes.Buffer
	if err := writeEDNValue(&compact, generic); err != nil {
		return err
	}
	out := compact.Bytes()
	if pretty {
		var indented bytes.Buffer
		if err := edn.Indent(&indented, out, "", "  "); err != nil {
			return fmt.Errorf("indent edn: %w", err)
		}
		out = indented.Bytes()
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func keyword(k string) edn.Keyword {
	k = strings.Join(strings.Fields(k), "-")
	if k == "" {
		k = "_"
	}
	return edn.Keyword(k)
}

func writeEDNValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("nil")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keyword(keys[i]) < keyword(keys[j]) })
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(' ')
			}
			kb, err := edn.Marshal(keyword(k))
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(' ')
			if err := writeEDNValue(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := writeEDNValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			buf.WriteString(strconv.FormatInt(int64(x), 10))
			return nil
		}
		buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	default:
		b, err := edn.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

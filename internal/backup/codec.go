package backup

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("backup.schema.json", schemaJSON)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Write encodes doc as YAML, zstd compressed when compress is set.
func Write(w io.Writer, doc *Document, compress bool) error {
	if !compress {
		return encode(w, doc)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := encode(zw, doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return enc.Close()
}

// Read decodes a document written by Write, compressed or not, and checks
// it against the backup schema.
func Read(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	if err := validate(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return &doc, nil
}

// validate checks raw YAML against the schema. The schema validator works
// on JSON values, so the document is converted first.
func validate(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding backup: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("converting backup: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("converting backup: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid backup: %w", err)
	}
	return nil
}

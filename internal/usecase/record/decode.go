package record

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	errs "kifu/internal/errors"
)

// EncodingAuto picks UTF-8 when the input is valid UTF-8 and Shift_JIS otherwise.
const EncodingAuto = "auto"

// DecodeLines reads raw KIF bytes in the named encoding and splits them into lines
// without terminators, keeping order and empty lines.
func DecodeLines(r io.Reader, encodingName string) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	enc, err := lookupEncoding(encodingName, raw)
	if err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(raw)
	if enc != nil {
		src = transform.NewReader(src, enc.NewDecoder())
	}

	var lines []string
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return lines, nil
}

// lookupEncoding returns nil for UTF-8 input.
func lookupEncoding(name string, raw []byte) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingAuto:
		if utf8.Valid(raw) {
			return nil, nil
		}
		return japanese.ShiftJIS, nil
	case "utf-8", "utf8":
		return nil, nil
	case "sjis", "cp932", "shift-jis":
		return japanese.ShiftJIS, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedEncoding, name)
	}
	return enc, nil
}

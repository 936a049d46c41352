package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cheyinl/typograf/internal/charset"
)

// document is the input file decoded to UTF-8. In place documents keep the
// file open for the rewrite.
type document struct {
	Text string

	file     *os.File
	encoding string
}

func openDocument(path, encoding string, writable bool) (*document, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text, err := charset.Decode(encoding, data)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &document{Text: text, file: f, encoding: encoding}, nil
}

// Replace writes result after header and truncates the file to the new
// length, so a shorter result leaves no stale bytes behind.
func (d *document) Replace(header, result string) error {
	head, err := charset.Encode(d.encoding, header)
	if err != nil {
		return err
	}
	out, err := charset.Encode(d.encoding, result)
	if err != nil {
		return err
	}

	off := int64(len(head))
	if _, err := d.file.WriteAt(out, off); err != nil {
		return err
	}
	if err := d.file.Truncate(off + int64(len(out))); err != nil {
		return err
	}
	return d.file.Sync()
}

func (d *document) Close() error {
	return d.file.Close()
}
